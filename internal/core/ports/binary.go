package ports

import (
	"context"

	"kilometers.ai/libbundle/internal/core/domain"
)

// BinaryInspector reads link metadata from a compiled artifact
type BinaryInspector interface {
	// Dependencies returns the declared dependency references in link-record order
	Dependencies(ctx context.Context, path string) ([]string, error)

	// Architectures returns the CPU architectures the artifact contains
	Architectures(ctx context.Context, path string) (domain.ArchSet, error)
}

// LinkEditor rewrites link metadata in place
type LinkEditor interface {
	// RewriteReference replaces the dependency reference oldRef with newRef in path
	RewriteReference(ctx context.Context, path, oldRef, newRef string) error

	// SetIdentity rewrites the artifact's own self-identifying link name
	SetIdentity(ctx context.Context, path, id string) error
}

// RootPreparer is implemented by formats whose root artifact needs extra link metadata
// (a run path pointing at the bundle directory) before dependencies can load
type RootPreparer interface {
	PrepareRoot(ctx context.Context, path string, layout domain.Layout) error
}

// Toolchain is the per-platform capability the closure traversal runs against.
// Implementations are selected once per root; the traversal never branches on platform.
type Toolchain interface {
	BinaryInspector
	LinkEditor

	// Format names the binary format handled ("macho", "elf")
	Format() string

	// DefaultReferencePrefix is the link record prefix for bundled libraries
	DefaultReferencePrefix() string

	// SystemPrefixes lists directories whose libraries are always provided by the OS
	SystemPrefixes() []string

	// DefaultExclusions lists library name patterns that must never be bundled
	DefaultExclusions() []string
}
