package domain

import "time"

// EdgeStatus records what the bundler decided for one reference
type EdgeStatus string

const (
	EdgeBundled    EdgeStatus = "bundled"
	EdgeExcluded   EdgeStatus = "excluded"
	EdgeSystem     EdgeStatus = "system"
	EdgeUnresolved EdgeStatus = "unresolved"
	EdgeFailed     EdgeStatus = "failed"
)

// Edge is one visited link from a referring artifact to a dependency
type Edge struct {
	From      string     `json:"from"`
	Reference string     `json:"reference"`
	To        string     `json:"to,omitempty"`
	Status    EdgeStatus `json:"status"`
	Rule      string     `json:"rule,omitempty"`
}

// Rewrite is one link record change applied (or planned, in dry-run mode) to a target
type Rewrite struct {
	Target string `json:"target"`
	Old    string `json:"old,omitempty"`
	New    string `json:"new"`
}

// FailedOperation captures a copy or rewrite error for one dependency
type FailedOperation struct {
	Target string `json:"target"`
	Action string `json:"action"`
	Err    error  `json:"-"`
}

// BundleReport is the outcome of one closure traversal
type BundleReport struct {
	Root          string                 `json:"root"`
	Architectures ArchSet                `json:"-"`
	DryRun        bool                   `json:"dry_run"`
	Visited       []string               `json:"visited"`
	Copied        []string               `json:"copied"`
	Reused        []string               `json:"reused"`
	Rewrites      []Rewrite              `json:"rewrites"`
	Identities    []Rewrite              `json:"identities"`
	Edges         []Edge                 `json:"edges"`
	Warnings      []UnresolvedDependency `json:"warnings"`
	Failures      []FailedOperation      `json:"-"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`

	warningKeys map[string]bool
}

// NewBundleReport creates an empty report for root
func NewBundleReport(root string, archs ArchSet, dryRun bool) *BundleReport {
	return &BundleReport{
		Root:          root,
		Architectures: archs,
		DryRun:        dryRun,
		StartedAt:     time.Now(),
		warningKeys:   make(map[string]bool),
	}
}

// AddWarning records an unresolved dependency once per (name, architectures).
// It returns false when an equivalent warning was already recorded.
func (r *BundleReport) AddWarning(w UnresolvedDependency) bool {
	if r.warningKeys == nil {
		r.warningKeys = make(map[string]bool)
	}
	if r.warningKeys[w.Key()] {
		return false
	}
	r.warningKeys[w.Key()] = true
	r.Warnings = append(r.Warnings, w)
	return true
}

// EdgesFrom returns the edges leaving the given artifact in traversal order
func (r *BundleReport) EdgesFrom(from string) []Edge {
	var edges []Edge
	for _, e := range r.Edges {
		if e.From == from {
			edges = append(edges, e)
		}
	}
	return edges
}

// Skipped returns edges that were excluded or classified as system-provided
func (r *BundleReport) Skipped() []Edge {
	var edges []Edge
	for _, e := range r.Edges {
		if e.Status == EdgeExcluded || e.Status == EdgeSystem {
			edges = append(edges, e)
		}
	}
	return edges
}

// HasWarnings reports whether any recoverable problem was recorded
func (r *BundleReport) HasWarnings() bool {
	return len(r.Warnings) > 0 || len(r.Failures) > 0
}

// Duration returns how long the traversal took
func (r *BundleReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Finish stamps the completion time
func (r *BundleReport) Finish() {
	r.FinishedAt = time.Now()
}
