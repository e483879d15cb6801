package services

import (
	"context"
	"errors"
	"fmt"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/core/closure"
	"kilometers.ai/libbundle/internal/core/domain"
	coreports "kilometers.ai/libbundle/internal/core/ports"
)

// BundleService bundles the dependency closure of one or more roots
type BundleService struct {
	selector ToolchainSelector
	files    coreports.FileStore
	logger   ports.LoggingGateway
}

// NewBundleService creates a new bundle service
func NewBundleService(selector ToolchainSelector, files coreports.FileStore, logger ports.LoggingGateway) *BundleService {
	return &BundleService{
		selector: selector,
		files:    files,
		logger:   logger,
	}
}

// Bundle traverses each root in turn. Roots share the bundle directory but each gets its
// own processed set. The first fatal error stops the run and is returned together with
// the reports completed so far.
func (s *BundleService) Bundle(ctx context.Context, config *ports.Configuration, roots []string, observer coreports.ProgressObserver) ([]*domain.BundleReport, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one root artifact is required")
	}

	mode, err := config.Mode()
	if err != nil {
		return nil, err
	}
	exclusions, err := LoadExclusions(config)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}

	reports := make([]*domain.BundleReport, 0, len(roots))
	for _, root := range roots {
		report, err := s.bundleRoot(ctx, config, root, exclusions, mode, observer)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (s *BundleService) bundleRoot(ctx context.Context, config *ports.Configuration, root string, exclusions []string, mode uint32, observer coreports.ProgressObserver) (*domain.BundleReport, error) {
	p, err := newPlan(s.selector, config, root, exclusions)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			s.logger.LogError(err, "Root artifact not found", map[string]interface{}{"root": root})
		}
		return nil, err
	}

	s.logger.LogInfo("Bundling dependency closure", map[string]interface{}{
		"root":       p.root,
		"format":     p.toolchain.Format(),
		"bundle_dir": p.layout.BundleDir,
		"dry_run":    config.IsDryRun(),
	})

	bundler := closure.NewBundler(p.toolchain, p.policy, s.files, closure.Options{
		FileMode: mode,
		DryRun:   config.IsDryRun(),
	}).WithObserver(observer)

	report, err := bundler.BundleClosure(ctx, closure.Request{
		Root:          p.root,
		Layout:        p.layout,
		SearchPaths:   config.SearchPaths,
		Architectures: p.override,
	})
	if err != nil {
		s.logger.LogError(err, "Bundling failed", map[string]interface{}{"root": p.root})
		return report, fmt.Errorf("failed to bundle %s: %w", p.root, err)
	}

	for _, w := range report.Warnings {
		s.logger.LogWarning(w.Error(), map[string]interface{}{"architectures": w.Architectures.String()})
	}
	for _, f := range report.Failures {
		s.logger.LogError(f.Err, "Failed to "+f.Action, map[string]interface{}{"target": f.Target})
	}

	stats := p.policy.Statistics()
	s.logger.LogDebug("Dependency closure complete", map[string]interface{}{
		"visited":    len(report.Visited),
		"copied":     len(report.Copied),
		"rewrites":   len(report.Rewrites),
		"warnings":   len(report.Warnings),
		"classified": stats.TotalEvaluated,
		"excluded":   stats.Excluded,
		"system":     stats.System,
		"duration":   report.Duration().String(),
	})

	return report, nil
}
