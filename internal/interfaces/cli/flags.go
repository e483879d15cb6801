package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/infrastructure/config"
)

// BundleFlags holds the command-line overrides shared by bundle, inspect, verify and tree
type BundleFlags struct {
	BundleDir       string
	Format          string
	SearchPaths     []string
	ExclusionFile   string
	Exclusions      []string
	Architectures   []string
	ReferencePrefix string
	ExecutableDir   string
	DryRun          bool
}

func addBundleFlags(cmd *cobra.Command, flags *BundleFlags) {
	cmd.Flags().StringVarP(&flags.BundleDir, "bundle-dir", "b", "", "Destination directory for bundled libraries")
	cmd.Flags().StringVar(&flags.Format, "format", "", "Binary format: auto, macho or elf")
	cmd.Flags().StringSliceVarP(&flags.SearchPaths, "search-path", "L", nil, "Directory searched for placeholder and bare references (repeatable)")
	cmd.Flags().StringVar(&flags.ExclusionFile, "exclusion-file", "", "File with one exclusion pattern per line")
	cmd.Flags().StringSliceVarP(&flags.Exclusions, "exclude", "x", nil, "Library name pattern never bundled (repeatable)")
	cmd.Flags().StringSliceVar(&flags.Architectures, "arch", nil, "Required architectures (default: the root's own)")
	cmd.Flags().StringVar(&flags.ReferencePrefix, "reference-prefix", "", "Prefix for rewritten references (default depends on format)")
	cmd.Flags().StringVar(&flags.ExecutableDir, "executable-dir", "", "Directory @executable_path expands to (default: the root's directory)")
}

// overrides returns a configuration holding only the flags the user set
func (f *BundleFlags) overrides(cmd *cobra.Command) *ports.Configuration {
	override := &ports.Configuration{}
	changed := cmd.Flags().Changed

	if changed("bundle-dir") {
		override.BundleDir = f.BundleDir
	}
	if changed("format") {
		override.Format = f.Format
	}
	if changed("search-path") {
		override.SearchPaths = f.SearchPaths
	}
	if changed("exclusion-file") {
		override.ExclusionFile = f.ExclusionFile
	}
	if changed("exclude") {
		override.Exclusions = f.Exclusions
	}
	if changed("arch") {
		override.Architectures = f.Architectures
	}
	if changed("reference-prefix") {
		override.ReferencePrefix = f.ReferencePrefix
	}
	if changed("executable-dir") {
		override.ExecutableDir = f.ExecutableDir
	}
	if cmd.Flags().Lookup("dry-run") != nil && changed("dry-run") {
		override.DryRun = ports.Bool(f.DryRun)
	}
	if cmd.Flags().Lookup("debug") != nil && changed("debug") {
		debugMode, _ := cmd.Flags().GetBool("debug")
		override.Debug = ports.Bool(debugMode)
	}
	return override
}

// loadConfiguration merges defaults, file, environment and flags
func loadConfiguration(cmd *cobra.Command, container *CLIContainer, flags *BundleFlags) (*ports.Configuration, error) {
	if flags != nil {
		container.ConfigRepo.AddSource(config.NewStaticConfigSource("flags", config.PriorityFlags, flags.overrides(cmd)))
	}
	cfg, err := container.ConfigRepo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.IsDebug() {
		container.Logger.SetLogLevel(ports.LogLevelDebug)
	}
	if flags != nil {
		if err := applyToolOverrides(container, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyToolOverrides hands tool paths and timeouts to the main container
func applyToolOverrides(container *CLIContainer, cfg *ports.Configuration) error {
	mainContainer, ok := container.MainContainer.(interface {
		ApplyToolOverrides(*ports.Configuration) error
	})
	if !ok {
		return nil
	}
	if err := mainContainer.ApplyToolOverrides(cfg); err != nil {
		return fmt.Errorf("failed to apply tool overrides: %w", err)
	}
	return nil
}
