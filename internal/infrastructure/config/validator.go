package config

import (
	"fmt"
	"strings"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/policy"
	"kilometers.ai/libbundle/internal/infrastructure/binfmt"
)

// ConfigValidator validates configuration values
type ConfigValidator struct{}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate checks every field and reports the first problem found
func (v *ConfigValidator) Validate(config *ports.Configuration) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if err := v.ValidateFormat(config.Format); err != nil {
		return err
	}
	if err := v.ValidateFileMode(config.FileMode); err != nil {
		return err
	}
	if config.ToolTimeout <= 0 {
		return fmt.Errorf("tool timeout must be greater than 0")
	}
	if err := v.ValidateArchitectures(config.Architectures); err != nil {
		return err
	}
	if err := v.ValidateExclusions(config.Exclusions); err != nil {
		return err
	}
	for _, p := range config.SearchPaths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("search paths cannot contain empty entries")
		}
	}
	return nil
}

// ValidateFormat accepts auto, macho and elf
func (v *ConfigValidator) ValidateFormat(format string) error {
	if !binfmt.ValidFormat(format) {
		return fmt.Errorf("format must be one of: %s", strings.Join([]string{binfmt.FormatAuto, binfmt.FormatMachO, binfmt.FormatELF}, ", "))
	}
	return nil
}

// ValidateFileMode requires an octal mode granting the owner rwx
func (v *ConfigValidator) ValidateFileMode(mode string) error {
	c := ports.Configuration{FileMode: mode}
	parsed, err := c.Mode()
	if err != nil {
		return err
	}
	if parsed > 0o7777 {
		return fmt.Errorf("file mode %s is out of range", mode)
	}
	if parsed&0o700 != 0o700 {
		return fmt.Errorf("file mode %s must grant the owner rwx", mode)
	}
	return nil
}

// ValidateArchitectures checks every name is a known architecture
func (v *ConfigValidator) ValidateArchitectures(names []string) error {
	if _, err := domain.ParseArchSet(names); err != nil {
		return fmt.Errorf("invalid architectures: %w", err)
	}
	return nil
}

// ValidateExclusions checks every glob pattern compiles
func (v *ConfigValidator) ValidateExclusions(patterns []string) error {
	if _, err := policy.NewPolicy(policy.Rules{Exclusions: patterns}); err != nil {
		return fmt.Errorf("invalid exclusions: %w", err)
	}
	return nil
}
