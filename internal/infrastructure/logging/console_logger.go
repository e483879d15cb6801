package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"kilometers.ai/libbundle/internal/application/ports"
)

// Prefix starts every log line
const Prefix = "[libbundle] "

var levelStyles = map[ports.LogLevel]lipgloss.Style{
	ports.LogLevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	ports.LogLevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	ports.LogLevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	ports.LogLevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
}

var levelLabels = map[ports.LogLevel]string{
	ports.LogLevelDebug: "DEBUG",
	ports.LogLevelInfo:  "INFO",
	ports.LogLevelWarn:  "WARN",
	ports.LogLevelError: "ERROR",
}

// ConsoleLogger implements the LoggingGateway interface over a standard logger
type ConsoleLogger struct {
	logger   *log.Logger
	mu       sync.RWMutex
	logLevel ports.LogLevel
}

// NewConsoleLogger creates a logger writing to stderr at info level
func NewConsoleLogger() *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, ports.LogLevelInfo)
}

// NewConsoleLoggerTo creates a logger writing to w
func NewConsoleLoggerTo(w io.Writer, level ports.LogLevel) *ConsoleLogger {
	return &ConsoleLogger{
		logger:   log.New(w, Prefix, log.LstdFlags),
		logLevel: level,
	}
}

// Log writes message when level is at or above the configured level
func (l *ConsoleLogger) Log(level ports.LogLevel, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	label, ok := levelLabels[level]
	if !ok {
		label = "INFO"
	}
	if style, ok := levelStyles[level]; ok {
		label = style.Render(label)
	}

	if len(fields) > 0 {
		l.logger.Printf("%s: %s (fields: %v)", label, message, fields)
	} else {
		l.logger.Printf("%s: %s", label, message)
	}
}

func (l *ConsoleLogger) LogError(err error, message string, fields map[string]interface{}) {
	l.Log(ports.LogLevelError, fmt.Sprintf("%s: %v", message, err), fields)
}

func (l *ConsoleLogger) LogWarning(message string, fields map[string]interface{}) {
	l.Log(ports.LogLevelWarn, message, fields)
}

func (l *ConsoleLogger) LogInfo(message string, fields map[string]interface{}) {
	l.Log(ports.LogLevelInfo, message, fields)
}

func (l *ConsoleLogger) LogDebug(message string, fields map[string]interface{}) {
	l.Log(ports.LogLevelDebug, message, fields)
}

// SetLogLevel sets the logging level
func (l *ConsoleLogger) SetLogLevel(level ports.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logLevel = level
}

// GetLogLevel returns the current logging level
func (l *ConsoleLogger) GetLogLevel() ports.LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logLevel
}

func (l *ConsoleLogger) shouldLog(level ports.LogLevel) bool {
	return level.Rank() >= l.GetLogLevel().Rank()
}

var _ ports.LoggingGateway = (*ConsoleLogger)(nil)
