package binfmt

import (
	"context"
	"debug/elf"
	"fmt"
	"path/filepath"

	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/policy"
	"kilometers.ai/libbundle/internal/core/ports"
)

// DefaultPatchelf is looked up on PATH when no explicit tool is configured
const DefaultPatchelf = "patchelf"

// OriginRunPath makes a bundled library search its own directory
const OriginRunPath = "$ORIGIN"

var elfSystemPrefixes = []string{"/lib/ld-", "/lib64/ld-"}

// ELFToolchain reads DT_NEEDED entries with debug/elf and edits them with patchelf
type ELFToolchain struct {
	runner CommandRunner
	tool   string
}

// NewELFToolchain creates an ELF toolchain. An empty tool uses patchelf from PATH.
func NewELFToolchain(runner CommandRunner, tool string) *ELFToolchain {
	if tool == "" {
		tool = DefaultPatchelf
	}
	return &ELFToolchain{runner: runner, tool: tool}
}

var (
	_ ports.Toolchain    = (*ELFToolchain)(nil)
	_ ports.RootPreparer = (*ELFToolchain)(nil)
)

func (e *ELFToolchain) Format() string { return FormatELF }

// DefaultReferencePrefix is empty: bundled libraries are found by name through the run path
func (e *ELFToolchain) DefaultReferencePrefix() string { return "" }

func (e *ELFToolchain) SystemPrefixes() []string {
	return append([]string(nil), elfSystemPrefixes...)
}

func (e *ELFToolchain) DefaultExclusions() []string {
	return policy.DefaultExclusions(FormatELF)
}

// Dependencies returns the DT_NEEDED entries in dynamic section order
func (e *ELFToolchain) Dependencies(ctx context.Context, path string) ([]string, error) {
	f, err := openELF(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	libs, err := f.ImportedLibraries()
	if err != nil {
		return nil, fmt.Errorf("failed to read dynamic section of %s: %w", path, err)
	}
	return libs, nil
}

func (e *ELFToolchain) Architectures(ctx context.Context, path string) (domain.ArchSet, error) {
	f, err := openELF(path)
	if err != nil {
		return domain.ArchSet{}, err
	}
	defer f.Close()

	arch, err := elfArchitecture(f.FileHeader)
	if err != nil {
		return domain.ArchSet{}, fmt.Errorf("%w in %s", err, path)
	}
	return domain.NewArchSet(arch), nil
}

func (e *ELFToolchain) RewriteReference(ctx context.Context, path, oldRef, newRef string) error {
	if _, err := e.runner.Run(ctx, e.tool, "--replace-needed", oldRef, newRef, path); err != nil {
		return fmt.Errorf("failed to replace %s in %s: %w", oldRef, path, err)
	}
	return nil
}

// SetIdentity sets the soname and points the library's run path at its own directory
func (e *ELFToolchain) SetIdentity(ctx context.Context, path, id string) error {
	if _, err := e.runner.Run(ctx, e.tool, "--set-soname", id, path); err != nil {
		return fmt.Errorf("failed to set soname of %s: %w", path, err)
	}
	if _, err := e.runner.Run(ctx, e.tool, "--set-rpath", OriginRunPath, path); err != nil {
		return fmt.Errorf("failed to set run path of %s: %w", path, err)
	}
	return nil
}

// PrepareRoot sets the root's run path to the bundle directory relative to the root
func (e *ELFToolchain) PrepareRoot(ctx context.Context, path string, layout domain.Layout) error {
	runPath, err := RootRunPath(path, layout.BundleDir)
	if err != nil {
		return err
	}
	if _, err := e.runner.Run(ctx, e.tool, "--set-rpath", runPath, path); err != nil {
		return fmt.Errorf("failed to set run path of %s: %w", path, err)
	}
	return nil
}

// RootRunPath returns the $ORIGIN-relative run path from root to bundleDir
func RootRunPath(root, bundleDir string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(root), bundleDir)
	if err != nil {
		return "", fmt.Errorf("failed to relate bundle directory to %s: %w", root, err)
	}
	if rel == "." {
		return OriginRunPath, nil
	}
	return OriginRunPath + "/" + filepath.ToSlash(rel), nil
}

func openELF(path string) (*elf.File, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedFormat, path, err)
	}
	return f, nil
}

func elfArchitecture(h elf.FileHeader) (domain.Architecture, error) {
	switch h.Machine {
	case elf.EM_X86_64:
		return domain.ArchX86_64, nil
	case elf.EM_AARCH64:
		return domain.ArchARM64, nil
	case elf.EM_386:
		return domain.ArchI386, nil
	case elf.EM_ARM:
		return domain.ArchARM, nil
	case elf.EM_PPC64:
		return domain.ArchPPC64, nil
	case elf.EM_PPC:
		return domain.ArchPPC, nil
	case elf.EM_RISCV:
		if h.Class == elf.ELFCLASS64 {
			return domain.ArchRISCV64, nil
		}
	}
	return domain.Architecture{}, fmt.Errorf("%w: machine %s", domain.ErrUnsupportedFormat, h.Machine)
}
