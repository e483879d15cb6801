package testfixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"kilometers.ai/libbundle/internal/core/domain"
	"kilometers.ai/libbundle/internal/core/ports"
)

// FakeBinary is the on-disk form of a fake artifact. Keeping link metadata inside the file
// means copies carry it along exactly like real Mach-O or ELF binaries.
type FakeBinary struct {
	ID            string   `json:"id,omitempty"`
	Architectures []string `json:"architectures"`
	Dependencies  []string `json:"dependencies"`
	RunPath       string   `json:"run_path,omitempty"`
}

// ReadFakeBinary decodes a fake artifact
func ReadFakeBinary(path string) (FakeBinary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FakeBinary{}, err
	}
	var bin FakeBinary
	if err := json.Unmarshal(data, &bin); err != nil {
		return FakeBinary{}, fmt.Errorf("not a fake binary: %s: %w", path, err)
	}
	return bin, nil
}

// WriteFakeBinary encodes a fake artifact
func WriteFakeBinary(path string, bin FakeBinary) error {
	data, err := json.MarshalIndent(bin, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FakeToolchain implements ports.Toolchain over FakeBinary files
type FakeToolchain struct {
	Prefix   string
	Prefixes []string
	Excluded []string

	mu         sync.Mutex
	reads      map[string]int
	rewrites   []domain.Rewrite
	identities []domain.Rewrite
	failOn     map[string]error
}

// NewFakeToolchain creates a fake using Mach-O style bundled references
func NewFakeToolchain() *FakeToolchain {
	return &FakeToolchain{
		Prefix:   "@executable_path/../Frameworks",
		Prefixes: []string{"/usr/lib/", "/System/"},
		reads:    make(map[string]int),
		failOn:   make(map[string]error),
	}
}

// FailRewritesOf makes every edit of path return err
func (f *FakeToolchain) FailRewritesOf(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[path] = err
}

func (f *FakeToolchain) Format() string { return "fake" }

func (f *FakeToolchain) DefaultReferencePrefix() string { return f.Prefix }

func (f *FakeToolchain) SystemPrefixes() []string { return f.Prefixes }

func (f *FakeToolchain) DefaultExclusions() []string { return f.Excluded }

func (f *FakeToolchain) Dependencies(ctx context.Context, path string) ([]string, error) {
	bin, err := ReadFakeBinary(path)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.reads[path]++
	f.mu.Unlock()
	return bin.Dependencies, nil
}

func (f *FakeToolchain) Architectures(ctx context.Context, path string) (domain.ArchSet, error) {
	bin, err := ReadFakeBinary(path)
	if err != nil {
		return domain.ArchSet{}, err
	}
	return domain.ParseArchSet(bin.Architectures)
}

func (f *FakeToolchain) RewriteReference(ctx context.Context, path, oldRef, newRef string) error {
	if err := f.failure(path); err != nil {
		return err
	}
	bin, err := ReadFakeBinary(path)
	if err != nil {
		return err
	}
	for i, dep := range bin.Dependencies {
		if dep == oldRef {
			bin.Dependencies[i] = newRef
		}
	}
	f.mu.Lock()
	f.rewrites = append(f.rewrites, domain.Rewrite{Target: path, Old: oldRef, New: newRef})
	f.mu.Unlock()
	return WriteFakeBinary(path, bin)
}

func (f *FakeToolchain) SetIdentity(ctx context.Context, path, id string) error {
	if err := f.failure(path); err != nil {
		return err
	}
	bin, err := ReadFakeBinary(path)
	if err != nil {
		return err
	}
	bin.ID = id
	f.mu.Lock()
	f.identities = append(f.identities, domain.Rewrite{Target: path, New: id})
	f.mu.Unlock()
	return WriteFakeBinary(path, bin)
}

// Reads returns how many times the dependencies of path were listed
func (f *FakeToolchain) Reads(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[path]
}

// Rewrites returns the applied reference rewrites in order
func (f *FakeToolchain) Rewrites() []domain.Rewrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Rewrite(nil), f.rewrites...)
}

// Identities returns the applied identity changes in order
func (f *FakeToolchain) Identities() []domain.Rewrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Rewrite(nil), f.identities...)
}

func (f *FakeToolchain) failure(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failOn[path]
}

// FakeRootToolchain additionally records PrepareRoot calls, like the ELF toolchain
type FakeRootToolchain struct {
	*FakeToolchain
	Prepared []string
}

// NewFakeRootToolchain creates a fake with bare-name references and root preparation
func NewFakeRootToolchain() *FakeRootToolchain {
	tc := NewFakeToolchain()
	tc.Prefix = ""
	return &FakeRootToolchain{FakeToolchain: tc}
}

func (f *FakeRootToolchain) PrepareRoot(ctx context.Context, path string, layout domain.Layout) error {
	bin, err := ReadFakeBinary(path)
	if err != nil {
		return err
	}
	bin.RunPath = layout.BundleDir
	f.Prepared = append(f.Prepared, path)
	return WriteFakeBinary(path, bin)
}

var (
	_ ports.Toolchain    = (*FakeToolchain)(nil)
	_ ports.RootPreparer = (*FakeRootToolchain)(nil)
)

// StaticSelector hands out one toolchain for every path
type StaticSelector struct {
	Toolchain ports.Toolchain
	Formats   []string
}

// ForPath returns the configured toolchain and records the requested format
func (s *StaticSelector) ForPath(path, format string) (ports.Toolchain, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &domain.NotFoundError{Path: path, Err: err}
	}
	s.Formats = append(s.Formats, format)
	return s.Toolchain, nil
}
