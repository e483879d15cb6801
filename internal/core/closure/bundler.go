package closure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/policy"
	"kilometers.ai/libbundle/internal/core/ports"
)

// DefaultFileMode is applied to bundled copies
const DefaultFileMode uint32 = 0755

// Options tunes a Bundler
type Options struct {
	FileMode uint32
	DryRun   bool
}

// Request describes one top-level closure traversal
type Request struct {
	Root        string
	Layout      domain.Layout
	SearchPaths []string
	// Architectures overrides the architectures read from Root when non-empty
	Architectures domain.ArchSet
}

// Bundler copies the dependency closure of a root artifact into a bundle directory and
// rewrites link records to point at the copies
type Bundler struct {
	toolchain ports.Toolchain
	policy    *policy.Policy
	files     ports.FileStore
	observer  ports.ProgressObserver
	options   Options
}

// NewBundler creates a bundler for one binary format
func NewBundler(toolchain ports.Toolchain, pol *policy.Policy, files ports.FileStore, opts Options) *Bundler {
	if opts.FileMode == 0 {
		opts.FileMode = DefaultFileMode
	}
	return &Bundler{
		toolchain: toolchain,
		policy:    pol,
		files:     files,
		observer:  noopObserver{},
		options:   opts,
	}
}

// WithObserver sets the progress observer
func (b *Bundler) WithObserver(observer ports.ProgressObserver) *Bundler {
	if observer == nil {
		observer = noopObserver{}
	}
	b.observer = observer
	return b
}

// traversal is the per-invocation state. A fresh one is created for every
// BundleClosure call so runs are reentrant.
type traversal struct {
	ctx       context.Context
	root      string
	layout    domain.Layout
	required  domain.ArchSet
	resolver  *Resolver
	processed map[string]bool
	bundled   map[string]bool
	report    *domain.BundleReport
}

// BundleClosure bundles every non-excluded dependency reachable from req.Root.
// Only a missing or unreadable root and context cancellation are returned as errors;
// per-dependency problems are recorded on the report.
func (b *Bundler) BundleClosure(ctx context.Context, req Request) (*domain.BundleReport, error) {
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, &domain.NotFoundError{Path: root, Err: err}
	} else if info.IsDir() {
		return nil, &domain.NotFoundError{Path: root, Err: fmt.Errorf("is a directory")}
	}

	required := req.Architectures
	if required.IsEmpty() {
		if required, err = b.toolchain.Architectures(ctx, root); err != nil {
			return nil, fmt.Errorf("failed to read architectures of %s: %w", root, err)
		}
	}

	layout := req.Layout
	if layout.ExecutableDir == "" {
		layout = layout.WithExecutableDir(filepath.Dir(root))
	}

	t := &traversal{
		ctx:       ctx,
		root:      root,
		layout:    layout,
		required:  required,
		resolver:  NewResolver(b.toolchain, req.SearchPaths),
		processed: make(map[string]bool),
		bundled:   make(map[string]bool),
		report:    domain.NewBundleReport(root, required, b.options.DryRun),
	}

	if !b.options.DryRun {
		if err := b.files.EnsureDir(layout.BundleDir); err != nil {
			return nil, fmt.Errorf("failed to prepare bundle directory: %w", err)
		}
		if preparer, ok := b.toolchain.(ports.RootPreparer); ok {
			if err := preparer.PrepareRoot(ctx, root, layout); err != nil {
				t.report.Failures = append(t.report.Failures, domain.FailedOperation{Target: root, Action: "prepare root", Err: err})
			}
		}
	}

	err = b.visit(t, root, root)
	t.report.Finish()
	if err != nil {
		return t.report, err
	}
	return t.report, nil
}

// visit processes one artifact. source is read for link metadata, target receives
// rewritten link records (the root itself, or the bundled copy of source).
func (b *Bundler) visit(t *traversal, source, target string) error {
	key := processedKey(source)
	if t.processed[key] {
		return nil
	}
	t.processed[key] = true
	t.report.Visited = append(t.report.Visited, source)
	b.observer.Visited(source)

	refs, err := b.toolchain.Dependencies(t.ctx, source)
	if err != nil {
		if source == t.root {
			return fmt.Errorf("failed to read dependencies of %s: %w", source, err)
		}
		t.report.Failures = append(t.report.Failures, domain.FailedOperation{Target: source, Action: "read dependencies", Err: err})
		return nil
	}

	for _, raw := range refs {
		if err := t.ctx.Err(); err != nil {
			return err
		}
		if err := b.visitReference(t, source, target, raw); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bundler) visitReference(t *traversal, source, target, raw string) error {
	ref, err := domain.ParseReference(raw)
	if err != nil {
		return nil
	}

	if decision := b.policy.Classify(ref.Value()); !decision.Bundlable() {
		t.report.Edges = append(t.report.Edges, skippedEdge(source, raw, "", decision))
		return nil
	}

	resolved, unresolved := t.resolver.Resolve(t.ctx, ref, source, t.layout, t.required)
	if unresolved != nil {
		if t.report.AddWarning(*unresolved) {
			b.observer.Warned(*unresolved)
		}
		t.report.Edges = append(t.report.Edges, domain.Edge{From: source, Reference: raw, Status: domain.EdgeUnresolved})
		return nil
	}

	// a bare name or placeholder may still land in a protected directory via the search path
	if decision := b.policy.Classify(resolved); !decision.Bundlable() {
		t.report.Edges = append(t.report.Edges, skippedEdge(source, raw, resolved, decision))
		return nil
	}

	name := ref.Name()
	dest := t.layout.BundledPath(name)
	bundledRef := t.layout.BundledReference(name)

	switch {
	case t.bundled[name]:
	case filepath.Clean(resolved) == dest || b.files.Exists(dest):
		t.report.Reused = appendUnique(t.report.Reused, name)
	default:
		if err := b.bundle(t, resolved, dest, bundledRef); err != nil {
			t.report.Failures = append(t.report.Failures, domain.FailedOperation{Target: dest, Action: "copy", Err: err})
			t.report.Edges = append(t.report.Edges, domain.Edge{From: source, Reference: raw, To: resolved, Status: domain.EdgeFailed})
			return nil
		}
		t.bundled[name] = true
		t.report.Copied = append(t.report.Copied, name)
		b.observer.Copied(name)
	}

	// rewrite even when the copy was reused
	if raw != bundledRef {
		if err := b.rewrite(t, target, raw, bundledRef); err != nil {
			t.report.Failures = append(t.report.Failures, domain.FailedOperation{Target: target, Action: "rewrite " + raw, Err: err})
		}
	}
	t.report.Edges = append(t.report.Edges, domain.Edge{From: source, Reference: raw, To: resolved, Status: domain.EdgeBundled})

	// recurse into the original, never the copy
	return b.visit(t, resolved, dest)
}

func (b *Bundler) bundle(t *traversal, src, dest, id string) error {
	if b.options.DryRun {
		t.report.Identities = append(t.report.Identities, domain.Rewrite{Target: dest, New: id})
		return nil
	}
	if err := b.files.CopyFile(src, dest, b.options.FileMode); err != nil {
		return err
	}
	if err := b.toolchain.SetIdentity(t.ctx, dest, id); err != nil {
		return fmt.Errorf("failed to set identity of %s: %w", dest, err)
	}
	t.report.Identities = append(t.report.Identities, domain.Rewrite{Target: dest, New: id})
	return nil
}

func (b *Bundler) rewrite(t *traversal, target, oldRef, newRef string) error {
	if !b.options.DryRun {
		if err := b.toolchain.RewriteReference(t.ctx, target, oldRef, newRef); err != nil {
			return err
		}
	}
	t.report.Rewrites = append(t.report.Rewrites, domain.Rewrite{Target: target, Old: oldRef, New: newRef})
	return nil
}

func skippedEdge(from, reference, to string, decision policy.Decision) domain.Edge {
	status := domain.EdgeExcluded
	if decision.Class == policy.ClassSystem {
		status = domain.EdgeSystem
	}
	return domain.Edge{From: from, Reference: reference, To: to, Status: status, Rule: decision.Rule}
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

type noopObserver struct{}

func (noopObserver) Visited(string) {}

func (noopObserver) Copied(string) {}

func (noopObserver) Warned(domain.UnresolvedDependency) {}

// processedKey collapses symlink aliases of one artifact onto the same entry
func processedKey(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
