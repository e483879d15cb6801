package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/core/domain"
)

// Problem kinds found by verification
const (
	ProblemArchitecture = "architecture"
	ProblemMissing      = "missing"
	ProblemNotRewritten = "not rewritten"
	ProblemUnreadable   = "unreadable"
)

// VerifyProblem is one defect in a bundled closure
type VerifyProblem struct {
	Artifact  string
	Reference string
	Kind      string
	Detail    string
}

// Verification is the result of checking a bundle after bundling
type Verification struct {
	Root          string
	BundleDir     string
	Architectures domain.ArchSet
	Checked       []string
	Problems      []VerifyProblem
}

// OK reports whether no problems were found
func (v *Verification) OK() bool {
	return len(v.Problems) == 0
}

// VerifyService checks that a root and its bundle directory are self-contained
type VerifyService struct {
	selector ToolchainSelector
	logger   ports.LoggingGateway
}

// NewVerifyService creates a new verify service
func NewVerifyService(selector ToolchainSelector, logger ports.LoggingGateway) *VerifyService {
	return &VerifyService{selector: selector, logger: logger}
}

// Verify checks the root and every library in its bundle directory. Each bundlable
// reference must use the bundled form and name a file present in the bundle directory,
// and every bundled library must cover the required architectures.
func (s *VerifyService) Verify(ctx context.Context, config *ports.Configuration, root string) (*Verification, error) {
	exclusions, err := LoadExclusions(config)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}
	p, err := newPlan(s.selector, config, root, exclusions)
	if err != nil {
		return nil, err
	}

	required := p.override
	if required.IsEmpty() {
		if required, err = p.toolchain.Architectures(ctx, p.root); err != nil {
			return nil, fmt.Errorf("failed to read architectures of %s: %w", p.root, err)
		}
	}

	result := &Verification{
		Root:          p.root,
		BundleDir:     p.layout.BundleDir,
		Architectures: required,
	}

	targets := []string{p.root}
	bundled, err := bundledFiles(p.layout.BundleDir)
	if err != nil {
		return nil, err
	}
	targets = append(targets, bundled...)

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.verifyArtifact(ctx, p, result, target, target != p.root)
	}

	if !result.OK() {
		s.logger.LogWarning("Bundle verification failed", map[string]interface{}{
			"root":     p.root,
			"problems": len(result.Problems),
		})
	}
	return result, nil
}

func (s *VerifyService) verifyArtifact(ctx context.Context, p *plan, result *Verification, target string, isBundled bool) {
	result.Checked = append(result.Checked, target)

	if isBundled {
		archs, err := p.toolchain.Architectures(ctx, target)
		if err != nil {
			result.Problems = append(result.Problems, VerifyProblem{Artifact: target, Kind: ProblemUnreadable, Detail: err.Error()})
			return
		}
		if !archs.Covers(result.Architectures) {
			result.Problems = append(result.Problems, VerifyProblem{
				Artifact: target,
				Kind:     ProblemArchitecture,
				Detail:   fmt.Sprintf("has %s, requires %s", archs, result.Architectures),
			})
		}
	}

	deps, err := p.toolchain.Dependencies(ctx, target)
	if err != nil {
		result.Problems = append(result.Problems, VerifyProblem{Artifact: target, Kind: ProblemUnreadable, Detail: err.Error()})
		return
	}

	for _, dep := range deps {
		if !p.policy.Classify(dep).Bundlable() {
			continue
		}
		ref, err := domain.ParseReference(dep)
		if err != nil {
			continue
		}
		name := ref.Name()
		if dep != p.layout.BundledReference(name) {
			result.Problems = append(result.Problems, VerifyProblem{
				Artifact:  target,
				Reference: dep,
				Kind:      ProblemNotRewritten,
				Detail:    "expected " + p.layout.BundledReference(name),
			})
			continue
		}
		bundledPath := p.layout.BundledPath(name)
		if !p.layout.Contains(bundledPath) {
			result.Problems = append(result.Problems, VerifyProblem{
				Artifact:  target,
				Reference: dep,
				Kind:      ProblemMissing,
				Detail:    "resolves outside " + p.layout.BundleDir,
			})
			continue
		}
		if _, err := os.Stat(bundledPath); err != nil {
			result.Problems = append(result.Problems, VerifyProblem{
				Artifact:  target,
				Reference: dep,
				Kind:      ProblemMissing,
				Detail:    "not present in " + p.layout.BundleDir,
			})
		}
	}
}

// bundledFiles lists the regular files directly inside dir in name order.
// A missing directory has no files.
func bundledFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
