package services

import (
	"fmt"
	"path/filepath"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/policy"
	coreports "kilometers.ai/libbundle/internal/core/ports"
)

// ToolchainSelector picks the binary toolchain for a root artifact
type ToolchainSelector interface {
	ForPath(path, format string) (coreports.Toolchain, error)
}

// plan holds everything one root needs before traversal starts
type plan struct {
	root      string
	toolchain coreports.Toolchain
	policy    *policy.Policy
	layout    domain.Layout
	override  domain.ArchSet
}

// LoadExclusions returns the configured exclusion patterns: the exclusion file first,
// then the inline list. Format defaults are added per toolchain.
func LoadExclusions(config *ports.Configuration) ([]string, error) {
	var patterns []string
	if config.ExclusionFile != "" {
		fromFile, err := policy.LoadExclusionFile(config.ExclusionFile)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, fromFile...)
	}
	return append(patterns, config.Exclusions...), nil
}

// DefaultBundleDir is the bundle directory used when none is configured:
// Contents/Frameworks for Mach-O application bundles, lib next to the executable for ELF
func DefaultBundleDir(root, format string) string {
	dir := filepath.Dir(root)
	if format == "macho" {
		return filepath.Join(dir, "..", "Frameworks")
	}
	return filepath.Join(dir, "lib")
}

func newPlan(selector ToolchainSelector, config *ports.Configuration, root string, exclusions []string) (*plan, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	tc, err := selector.ForPath(abs, config.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to select toolchain for %s: %w", abs, err)
	}

	rules := policy.Rules{
		Exclusions:     append(append([]string(nil), tc.DefaultExclusions()...), exclusions...),
		SystemPrefixes: tc.SystemPrefixes(),
	}
	if len(config.SystemPrefixes) > 0 {
		rules.SystemPrefixes = config.SystemPrefixes
	}
	pol, err := policy.NewPolicy(rules)
	if err != nil {
		return nil, err
	}

	bundleDir := config.BundleDir
	if bundleDir == "" {
		bundleDir = DefaultBundleDir(abs, tc.Format())
	}
	prefix := config.ReferencePrefix
	if prefix == "" {
		prefix = tc.DefaultReferencePrefix()
	}
	layout, err := domain.NewLayout(bundleDir, prefix, config.ExecutableDir)
	if err != nil {
		return nil, err
	}

	override, err := domain.ParseArchSet(config.Architectures)
	if err != nil {
		return nil, err
	}

	return &plan{root: abs, toolchain: tc, policy: pol, layout: layout, override: override}, nil
}
