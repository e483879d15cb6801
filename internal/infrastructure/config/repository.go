package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"kilometers.ai/libbundle/internal/application/ports"
)

// ConfigPathEnv names the environment variable that points at a configuration file
const ConfigPathEnv = "LIBBUNDLE_CONFIG"

// DefaultConfigFile is read from the working directory when no path is given
const DefaultConfigFile = "libbundle.json"

// Source priorities. Higher priorities are applied later and win.
const (
	PriorityDefaults    = 0
	PriorityFile        = 1
	PriorityEnvironment = 2
	PriorityFlags       = 3
)

// ConfigSource defines the interface for configuration sources
type ConfigSource interface {
	Load() (*ports.Configuration, error)
	Priority() int
	Name() string
}

// CompositeConfigRepository implements the ConfigurationRepository interface
type CompositeConfigRepository struct {
	sources    []ConfigSource
	validator  *ConfigValidator
	configPath string
}

// NewCompositeConfigRepository creates a repository reading configPath, then LIBBUNDLE_CONFIG,
// then ./libbundle.json, overlaid with LIBBUNDLE_* environment variables
func NewCompositeConfigRepository(configPath string) *CompositeConfigRepository {
	if configPath == "" {
		configPath = os.Getenv(ConfigPathEnv)
	}
	if configPath == "" {
		configPath = DefaultConfigFile
	}

	repo := &CompositeConfigRepository{
		sources:    make([]ConfigSource, 0),
		validator:  NewConfigValidator(),
		configPath: configPath,
	}

	repo.AddSource(NewFileConfigSource(repo.configPath))
	repo.AddSource(NewEnvironmentConfigSource())

	return repo
}

// AddSource adds a configuration source, replacing any registered under the same name
func (r *CompositeConfigRepository) AddSource(source ConfigSource) {
	for i, existing := range r.sources {
		if existing.Name() == source.Name() {
			r.sources[i] = source
			return
		}
	}
	r.sources = append(r.sources, source)
}

// Sources returns the registered sources in application order
func (r *CompositeConfigRepository) Sources() []ConfigSource {
	sorted := make([]ConfigSource, len(r.sources))
	copy(sorted, r.sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return sorted
}

// Load merges every source over the defaults and validates the result
func (r *CompositeConfigRepository) Load() (*ports.Configuration, error) {
	config := r.LoadDefault()

	for _, source := range r.Sources() {
		sourceConfig, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load %s configuration: %w", source.Name(), err)
		}
		config = mergeConfigurations(config, sourceConfig)
	}

	if err := r.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Save persists the configuration as JSON, or YAML when the path ends in .yaml/.yml
func (r *CompositeConfigRepository) Save(config *ports.Configuration) error {
	if err := r.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if dir := filepath.Dir(r.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := marshalConfiguration(r.configPath, config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(r.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// LoadDefault returns the default configuration
func (r *CompositeConfigRepository) LoadDefault() *ports.Configuration {
	return &ports.Configuration{
		BundleDir:   "",
		Format:      "auto",
		SearchPaths: []string{},
		FileMode:    "0755",
		ToolTimeout: 30,
		DryRun:      ports.Bool(false),
		Debug:       ports.Bool(false),
	}
}

// Validate validates the configuration
func (r *CompositeConfigRepository) Validate(config *ports.Configuration) error {
	return r.validator.Validate(config)
}

// GetConfigPath returns the path to the configuration file
func (r *CompositeConfigRepository) GetConfigPath() string {
	return r.configPath
}

var _ ports.ConfigurationRepository = (*CompositeConfigRepository)(nil)

// mergeConfigurations overlays the non-zero fields of source onto target
func mergeConfigurations(target, source *ports.Configuration) *ports.Configuration {
	if source == nil {
		return target
	}
	if target == nil {
		return source
	}

	result := *target

	// String fields - override if not empty
	if source.BundleDir != "" {
		result.BundleDir = source.BundleDir
	}
	if source.Format != "" {
		result.Format = source.Format
	}
	if source.ExclusionFile != "" {
		result.ExclusionFile = source.ExclusionFile
	}
	if source.ReferencePrefix != "" {
		result.ReferencePrefix = source.ReferencePrefix
	}
	if source.ExecutableDir != "" {
		result.ExecutableDir = source.ExecutableDir
	}
	if source.FileMode != "" {
		result.FileMode = source.FileMode
	}
	if source.InstallNameTool != "" {
		result.InstallNameTool = source.InstallNameTool
	}
	if source.Patchelf != "" {
		result.Patchelf = source.Patchelf
	}

	// Slice fields - override if not empty
	if len(source.SearchPaths) > 0 {
		result.SearchPaths = source.SearchPaths
	}
	if len(source.Exclusions) > 0 {
		result.Exclusions = source.Exclusions
	}
	if len(source.SystemPrefixes) > 0 {
		result.SystemPrefixes = source.SystemPrefixes
	}
	if len(source.Architectures) > 0 {
		result.Architectures = source.Architectures
	}

	if source.ToolTimeout != 0 {
		result.ToolTimeout = source.ToolTimeout
	}

	// Boolean fields - nil means the source left them unset
	if source.DryRun != nil {
		result.DryRun = ports.Bool(*source.DryRun)
	}
	if source.Debug != nil {
		result.Debug = ports.Bool(*source.Debug)
	}

	return &result
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func marshalConfiguration(path string, config *ports.Configuration) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}
