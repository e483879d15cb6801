package services

import (
	"context"
	"fmt"

	"kilometers.ai/libbundle/internal/application/ports"
	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/policy"
)

// ReferenceInfo is one declared dependency and how the policy classifies it
type ReferenceInfo struct {
	Reference string
	Kind      domain.ReferenceKind
	Class     policy.Class
	Rule      string
}

// Inspection describes a single artifact without traversing its dependencies
type Inspection struct {
	Path          string
	Format        string
	Architectures domain.ArchSet
	Rules         []string
	References    []ReferenceInfo
}

// InspectService reports an artifact's link metadata
type InspectService struct {
	selector ToolchainSelector
	logger   ports.LoggingGateway
}

// NewInspectService creates a new inspect service
func NewInspectService(selector ToolchainSelector, logger ports.LoggingGateway) *InspectService {
	return &InspectService{selector: selector, logger: logger}
}

// Inspect reads path's architectures and classifies each of its references
func (s *InspectService) Inspect(ctx context.Context, config *ports.Configuration, path string) (*Inspection, error) {
	exclusions, err := LoadExclusions(config)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}
	p, err := newPlan(s.selector, config, path, exclusions)
	if err != nil {
		return nil, err
	}

	archs, err := p.toolchain.Architectures(ctx, p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read architectures: %w", err)
	}
	deps, err := p.toolchain.Dependencies(ctx, p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dependencies: %w", err)
	}

	inspection := &Inspection{
		Path:          p.root,
		Format:        p.toolchain.Format(),
		Architectures: archs,
		Rules:         p.policy.Rules(),
	}
	for _, dep := range deps {
		ref, err := domain.ParseReference(dep)
		if err != nil {
			s.logger.LogWarning("Skipping malformed reference", map[string]interface{}{"reference": dep})
			continue
		}
		decision := p.policy.Classify(dep)
		inspection.References = append(inspection.References, ReferenceInfo{
			Reference: dep,
			Kind:      ref.Kind(),
			Class:     decision.Class,
			Rule:      decision.Rule,
		})
	}
	return inspection, nil
}
