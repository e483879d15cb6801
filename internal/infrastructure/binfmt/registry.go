package binfmt

import (
	"context"
	"fmt"

	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/ports"
)

// CommandRunner executes an external tool. process.Executor satisfies it.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Tools names the link-editing executables
type Tools struct {
	InstallNameTool string
	Patchelf        string
}

// Registry selects the toolchain for a root artifact
type Registry struct {
	runner CommandRunner
	tools  Tools
}

// NewRegistry creates a toolchain registry
func NewRegistry(runner CommandRunner, tools Tools) *Registry {
	return &Registry{runner: runner, tools: tools}
}

// Reconfigure replaces the runner and tool names used by toolchains handed out later
func (r *Registry) Reconfigure(runner CommandRunner, tools Tools) {
	r.runner = runner
	r.tools = tools
}

// ForFormat returns the toolchain for an explicit format
func (r *Registry) ForFormat(format string) (ports.Toolchain, error) {
	switch format {
	case FormatMachO:
		return NewMachOToolchain(r.runner, r.tools.InstallNameTool), nil
	case FormatELF:
		return NewELFToolchain(r.runner, r.tools.Patchelf), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}

// ForPath returns the toolchain for path. With FormatAuto or an empty format the
// file's magic bytes decide.
func (r *Registry) ForPath(path, format string) (ports.Toolchain, error) {
	if format == "" || format == FormatAuto {
		detected, err := Detect(path)
		if err != nil {
			return nil, err
		}
		format = detected
	}
	return r.ForFormat(format)
}
