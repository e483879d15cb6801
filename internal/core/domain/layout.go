package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout describes where bundled dependencies live inside the packaged application and
// how link records should refer to them
type Layout struct {
	// BundleDir is the flat destination directory for bundled dependencies
	BundleDir string
	// ReferencePrefix is prepended to a bundled library's name when rewriting link
	// records (for example @executable_path/../Frameworks). Empty means bare names.
	ReferencePrefix string
	// ExecutableDir expands @executable_path while resolving placeholders
	ExecutableDir string
}

// NewLayout validates and normalizes a layout
func NewLayout(bundleDir, referencePrefix, executableDir string) (Layout, error) {
	if strings.TrimSpace(bundleDir) == "" {
		return Layout{}, fmt.Errorf("bundle directory cannot be empty")
	}
	abs, err := filepath.Abs(bundleDir)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve bundle directory: %w", err)
	}
	if executableDir != "" {
		if executableDir, err = filepath.Abs(executableDir); err != nil {
			return Layout{}, fmt.Errorf("failed to resolve executable directory: %w", err)
		}
	}
	return Layout{
		BundleDir:       abs,
		ReferencePrefix: strings.TrimSuffix(referencePrefix, "/"),
		ExecutableDir:   executableDir,
	}, nil
}

// BundledPath returns the on-disk destination of a bundled library
func (l Layout) BundledPath(name string) string {
	return filepath.Join(l.BundleDir, name)
}

// BundledReference returns the link record value that resolves to the bundled library
// at runtime. The prefix is kept verbatim so "@executable_path/.." survives.
func (l Layout) BundledReference(name string) string {
	if l.ReferencePrefix == "" {
		return name
	}
	return l.ReferencePrefix + "/" + name
}

// Contains reports whether p lies inside the bundle directory
func (l Layout) Contains(p string) bool {
	rel, err := filepath.Rel(l.BundleDir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// WithExecutableDir returns a copy of the layout using dir for @executable_path
func (l Layout) WithExecutableDir(dir string) Layout {
	l.ExecutableDir = dir
	return l
}
