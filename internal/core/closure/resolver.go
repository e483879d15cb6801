package closure

import (
	"context"
	"os"
	"path/filepath"

	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/ports"
)

// Resolver locates the on-disk source of a dependency reference for a required
// architecture set
type Resolver struct {
	inspector   ports.BinaryInspector
	searchPaths []string
}

// NewResolver creates a resolver searching searchPaths in order
func NewResolver(inspector ports.BinaryInspector, searchPaths []string) *Resolver {
	cleaned := make([]string, 0, len(searchPaths))
	for _, p := range searchPaths {
		if p == "" {
			continue
		}
		cleaned = append(cleaned, filepath.Clean(p))
	}
	return &Resolver{inspector: inspector, searchPaths: cleaned}
}

// Resolve returns the first candidate whose architectures cover required.
// Same-named candidates built for other architectures are reported in the returned
// UnresolvedDependency and never selected.
func (r *Resolver) Resolve(ctx context.Context, ref domain.Reference, referrer string, layout domain.Layout, required domain.ArchSet) (string, *domain.UnresolvedDependency) {
	var rejected []string
	mismatched := false
	for _, candidate := range r.candidates(ref, referrer, layout) {
		if !isRegularFile(candidate) {
			continue
		}
		archs, err := r.inspector.Architectures(ctx, candidate)
		if err != nil {
			rejected = append(rejected, candidate+" (unreadable)")
			continue
		}
		if !archs.Covers(required) {
			rejected = append(rejected, candidate+" ("+archs.String()+")")
			mismatched = true
			continue
		}
		return candidate, nil
	}

	cause := domain.ErrNotInSearchPaths
	if mismatched {
		cause = domain.ErrArchitectureMismatch
	}
	return "", &domain.UnresolvedDependency{
		Name:          ref.Name(),
		Reference:     ref.Value(),
		Referrer:      referrer,
		Architectures: required,
		Candidates:    rejected,
		Cause:         cause,
	}
}

// candidates lists lookup locations in priority order without duplicates
func (r *Resolver) candidates(ref domain.Reference, referrer string, layout domain.Layout) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	switch ref.Kind() {
	case domain.ReferenceAbsolute:
		add(ref.Value())
		return out

	case domain.ReferencePlaceholder:
		rest := filepath.FromSlash(ref.Remainder())
		switch ref.Placeholder() {
		case domain.PlaceholderLoaderPath, domain.PlaceholderOrigin:
			add(filepath.Join(filepath.Dir(referrer), rest))
		case domain.PlaceholderExecutablePath:
			if layout.ExecutableDir != "" {
				add(filepath.Join(layout.ExecutableDir, rest))
			}
		}
		for _, dir := range r.searchPaths {
			add(filepath.Join(dir, rest))
		}
	}

	for _, dir := range r.searchPaths {
		add(filepath.Join(dir, ref.Name()))
	}
	return out
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
