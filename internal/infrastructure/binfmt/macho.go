package binfmt

import (
	"bytes"
	"context"
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"

	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/policy"
	"kilometers.ai/libbundle/internal/core/ports"
)

// Defaults for application bundles on macOS
const (
	MachOReferencePrefix   = "@executable_path/../Frameworks"
	DefaultInstallNameTool = "install_name_tool"
)

var machoSystemPrefixes = []string{"/usr/lib/", "/System/"}

var machoArchitectures = map[macho.Cpu]domain.Architecture{
	macho.CpuAmd64: domain.ArchX86_64,
	macho.CpuArm64: domain.ArchARM64,
	macho.Cpu386:   domain.ArchI386,
	macho.CpuArm:   domain.ArchARM,
	macho.CpuPpc:   domain.ArchPPC,
	macho.CpuPpc64: domain.ArchPPC64,
}

// MachOToolchain reads load commands with debug/macho and edits them with install_name_tool
type MachOToolchain struct {
	runner CommandRunner
	tool   string
}

// NewMachOToolchain creates a Mach-O toolchain. An empty tool uses install_name_tool from PATH.
func NewMachOToolchain(runner CommandRunner, tool string) *MachOToolchain {
	if tool == "" {
		tool = DefaultInstallNameTool
	}
	return &MachOToolchain{runner: runner, tool: tool}
}

var _ ports.Toolchain = (*MachOToolchain)(nil)

func (m *MachOToolchain) Format() string { return FormatMachO }

func (m *MachOToolchain) DefaultReferencePrefix() string { return MachOReferencePrefix }

func (m *MachOToolchain) SystemPrefixes() []string {
	return append([]string(nil), machoSystemPrefixes...)
}

func (m *MachOToolchain) DefaultExclusions() []string {
	return policy.DefaultExclusions(FormatMachO)
}

// Dependencies returns the names of every dylib load command (plain, weak, re-exported,
// lazy and upward) in load order. For universal binaries the slices are merged in order of
// first appearance.
func (m *MachOToolchain) Dependencies(ctx context.Context, path string) ([]string, error) {
	files, closeAll, err := openMachO(path)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	seen := make(map[string]bool)
	var deps []string
	for _, f := range files {
		libs, err := loadedDylibs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read load commands of %s: %w", path, err)
		}
		for _, lib := range libs {
			if !seen[lib] {
				seen[lib] = true
				deps = append(deps, lib)
			}
		}
	}
	return deps, nil
}

// Architectures returns the CPU types of every slice
func (m *MachOToolchain) Architectures(ctx context.Context, path string) (domain.ArchSet, error) {
	files, closeAll, err := openMachO(path)
	if err != nil {
		return domain.ArchSet{}, err
	}
	defer closeAll()

	var archs []domain.Architecture
	for _, f := range files {
		arch, ok := machoArchitectures[f.Cpu]
		if !ok {
			return domain.ArchSet{}, fmt.Errorf("%w: cpu type %s in %s", domain.ErrUnsupportedFormat, f.Cpu, path)
		}
		archs = append(archs, arch)
	}
	return domain.NewArchSet(archs...), nil
}

func (m *MachOToolchain) RewriteReference(ctx context.Context, path, oldRef, newRef string) error {
	if _, err := m.runner.Run(ctx, m.tool, "-change", oldRef, newRef, path); err != nil {
		return fmt.Errorf("failed to change %s in %s: %w", oldRef, path, err)
	}
	return nil
}

func (m *MachOToolchain) SetIdentity(ctx context.Context, path, id string) error {
	if _, err := m.runner.Run(ctx, m.tool, "-id", id, path); err != nil {
		return fmt.Errorf("failed to set install name of %s: %w", path, err)
	}
	return nil
}

// openMachO returns one *macho.File per architecture slice
func openMachO(path string) ([]*macho.File, func(), error) {
	fat, err := macho.OpenFat(path)
	if err == nil {
		files := make([]*macho.File, 0, len(fat.Arches))
		for _, arch := range fat.Arches {
			files = append(files, arch.File)
		}
		return files, func() { fat.Close() }, nil
	}
	var formatErr *macho.FormatError
	if !errors.Is(err, macho.ErrNotFat) && !errors.As(err, &formatErr) {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	f, err := macho.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", domain.ErrUnsupportedFormat, path, err)
	}
	return []*macho.File{f}, func() { f.Close() }, nil
}

// Dylib load commands debug/macho leaves undecoded
const (
	loadCmdLoadWeakDylib   macho.LoadCmd = 0x80000018
	loadCmdReexportDylib   macho.LoadCmd = 0x8000001f
	loadCmdLazyLoadDylib   macho.LoadCmd = 0x20
	loadCmdLoadUpwardDylib macho.LoadCmd = 0x80000023
)

// loadedDylibs lists dylib names in load command order
func loadedDylibs(f *macho.File) ([]string, error) {
	var libs []string
	for _, l := range f.Loads {
		switch l := l.(type) {
		case *macho.Dylib:
			libs = append(libs, l.Name)
		case macho.LoadBytes:
			name, ok, err := dylibName(f.ByteOrder, l)
			if err != nil {
				return nil, err
			}
			if ok {
				libs = append(libs, name)
			}
		}
	}
	return libs, nil
}

// dylibName decodes the dylib_command name of a weak, re-export, lazy or upward load
func dylibName(order binary.ByteOrder, raw []byte) (string, bool, error) {
	if len(raw) < 8 {
		return "", false, nil
	}
	switch macho.LoadCmd(order.Uint32(raw[0:4])) {
	case loadCmdLoadWeakDylib, loadCmdReexportDylib, loadCmdLazyLoadDylib, loadCmdLoadUpwardDylib:
	default:
		return "", false, nil
	}
	if len(raw) < 24 {
		return "", false, fmt.Errorf("dylib load command too short: %d bytes", len(raw))
	}
	offset := order.Uint32(raw[8:12])
	if offset < 24 || int(offset) >= len(raw) {
		return "", false, fmt.Errorf("invalid dylib name offset %d", offset)
	}
	name := raw[offset:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return string(name), true, nil
}
