package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"kilometers.ai/libbundle/internal/application/ports"
)

// FileConfigSource loads configuration from a JSON or YAML file
type FileConfigSource struct {
	filePath string
}

// NewFileConfigSource creates a new file configuration source
func NewFileConfigSource(filePath string) *FileConfigSource {
	return &FileConfigSource{
		filePath: filePath,
	}
}

// Load loads configuration from file. A missing file yields no configuration.
func (f *FileConfigSource) Load() (*ports.Configuration, error) {
	data, err := os.ReadFile(f.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ports.Configuration
	if isYAML(f.filePath) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", f.filePath, err)
	}

	return &config, nil
}

func (f *FileConfigSource) Priority() int {
	return PriorityFile
}

func (f *FileConfigSource) Name() string {
	return "file"
}

// EnvironmentConfigSource loads configuration from LIBBUNDLE_* environment variables
type EnvironmentConfigSource struct{}

// NewEnvironmentConfigSource creates a new environment configuration source
func NewEnvironmentConfigSource() *EnvironmentConfigSource {
	return &EnvironmentConfigSource{}
}

// Load loads configuration from environment variables.
// LIBBUNDLE_SEARCH_PATHS uses the platform list separator; other lists are comma separated.
func (e *EnvironmentConfigSource) Load() (*ports.Configuration, error) {
	env.Load()

	config := &ports.Configuration{
		BundleDir:       env.Str("LIBBUNDLE_BUNDLE_DIR"),
		Format:          env.Str("LIBBUNDLE_FORMAT"),
		ExclusionFile:   env.Str("LIBBUNDLE_EXCLUSION_FILE"),
		ReferencePrefix: env.Str("LIBBUNDLE_REFERENCE_PREFIX"),
		ExecutableDir:   env.Str("LIBBUNDLE_EXECUTABLE_DIR"),
		FileMode:        env.Str("LIBBUNDLE_FILE_MODE"),
		InstallNameTool: env.Str("LIBBUNDLE_INSTALL_NAME_TOOL"),
		Patchelf:        env.Str("LIBBUNDLE_PATCHELF"),
		ToolTimeout:     env.Int("LIBBUNDLE_TOOL_TIMEOUT", 0),
	}

	if env.Has("LIBBUNDLE_DRY_RUN") {
		config.DryRun = ports.Bool(env.Bool("LIBBUNDLE_DRY_RUN"))
	}
	if env.Has("LIBBUNDLE_DEBUG") {
		config.Debug = ports.Bool(env.Bool("LIBBUNDLE_DEBUG"))
	}

	if env.Has("LIBBUNDLE_SEARCH_PATHS") {
		config.SearchPaths = filepath.SplitList(env.Str("LIBBUNDLE_SEARCH_PATHS"))
	}
	config.Exclusions = splitList(env.Str("LIBBUNDLE_EXCLUSIONS"))
	config.SystemPrefixes = splitList(env.Str("LIBBUNDLE_SYSTEM_PREFIXES"))
	config.Architectures = splitList(env.Str("LIBBUNDLE_ARCHITECTURES"))

	return config, nil
}

func (e *EnvironmentConfigSource) Priority() int {
	return PriorityEnvironment
}

func (e *EnvironmentConfigSource) Name() string {
	return "environment"
}

// StaticConfigSource serves a fixed configuration, such as command-line flag overrides
type StaticConfigSource struct {
	name     string
	priority int
	config   *ports.Configuration
}

// NewStaticConfigSource creates a source that always returns config
func NewStaticConfigSource(name string, priority int, config *ports.Configuration) *StaticConfigSource {
	return &StaticConfigSource{name: name, priority: priority, config: config}
}

func (s *StaticConfigSource) Load() (*ports.Configuration, error) {
	return s.config, nil
}

func (s *StaticConfigSource) Priority() int {
	return s.priority
}

func (s *StaticConfigSource) Name() string {
	return s.name
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
