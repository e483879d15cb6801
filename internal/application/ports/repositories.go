package ports

import (
	"fmt"
	"strconv"
	"time"
)

// ConfigurationRepository defines the interface for configuration persistence
type ConfigurationRepository interface {
	// Load retrieves the effective configuration
	Load() (*Configuration, error)

	// Save persists the configuration
	Save(config *Configuration) error

	// LoadDefault returns the default configuration
	LoadDefault() *Configuration

	// Validate validates the configuration
	Validate(config *Configuration) error

	// GetConfigPath returns the path to the configuration file
	GetConfigPath() string
}

// Configuration represents the application configuration
type Configuration struct {
	BundleDir       string   `json:"bundle_dir" yaml:"bundle_dir"`
	Format          string   `json:"format" yaml:"format"`
	SearchPaths     []string `json:"search_paths" yaml:"search_paths"`
	ExclusionFile   string   `json:"exclusion_file,omitempty" yaml:"exclusion_file,omitempty"`
	Exclusions      []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
	SystemPrefixes  []string `json:"system_prefixes,omitempty" yaml:"system_prefixes,omitempty"`
	ReferencePrefix string   `json:"reference_prefix,omitempty" yaml:"reference_prefix,omitempty"`
	ExecutableDir   string   `json:"executable_dir,omitempty" yaml:"executable_dir,omitempty"`
	Architectures   []string `json:"architectures,omitempty" yaml:"architectures,omitempty"`
	FileMode        string   `json:"file_mode" yaml:"file_mode"`
	ToolTimeout     int      `json:"tool_timeout" yaml:"tool_timeout"`
	InstallNameTool string   `json:"install_name_tool,omitempty" yaml:"install_name_tool,omitempty"`
	Patchelf        string   `json:"patchelf,omitempty" yaml:"patchelf,omitempty"`
	DryRun          *bool    `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Debug           *bool    `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// Bool returns a pointer to v for the optional boolean fields
func Bool(v bool) *bool {
	return &v
}

// IsDryRun reports whether the run must leave the filesystem untouched
func (c *Configuration) IsDryRun() bool {
	return c.DryRun != nil && *c.DryRun
}

// IsDebug reports whether debug logging is enabled
func (c *Configuration) IsDebug() bool {
	return c.Debug != nil && *c.Debug
}

// Mode parses FileMode as an octal permission string such as "0755"
func (c *Configuration) Mode() (uint32, error) {
	mode, err := strconv.ParseUint(c.FileMode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", c.FileMode, err)
	}
	return uint32(mode), nil
}

// Timeout returns ToolTimeout as a duration
func (c *Configuration) Timeout() time.Duration {
	return time.Duration(c.ToolTimeout) * time.Second
}
