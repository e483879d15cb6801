package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single external tool invocation
const DefaultTimeout = 30 * time.Second

// CommandError describes a tool invocation that exited unsuccessfully
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Name, strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Executor runs external link-editing tools and captures their output
type Executor struct {
	// Configuration for process execution
	timeout time.Duration
	workDir string
	env     []string
}

// NewExecutor creates a new process executor
func NewExecutor() *Executor {
	return &Executor{
		timeout: DefaultTimeout,
		workDir: "",
		env:     os.Environ(),
	}
}

// NewExecutorWithOptions creates a new process executor with custom options
func NewExecutorWithOptions(timeout time.Duration, workDir string, env []string) *Executor {
	if env == nil {
		env = os.Environ()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Executor{
		timeout: timeout,
		workDir: workDir,
		env:     env,
	}
}

// Timeout returns the per-invocation timeout
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Run executes name with args and returns its standard output.
// A non-zero exit yields a *CommandError carrying the trimmed standard error.
func (e *Executor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}
	cmd.Env = append([]string(nil), e.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{
			Name:     name,
			Args:     args,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			cmdErr.Err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return stdout.Bytes(), cmdErr
	}

	return stdout.Bytes(), nil
}

// LookPath reports whether a tool is available on PATH
func (e *Executor) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("failed to locate %s: %w", name, err)
	}
	return p, nil
}
