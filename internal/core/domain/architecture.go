package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Architecture is a value object naming a CPU architecture a binary is built for
type Architecture struct {
	value string
}

// Well-known architectures. Aliases used by other toolchains are normalized onto these.
var (
	ArchX86_64  = Architecture{value: "x86_64"}
	ArchARM64   = Architecture{value: "arm64"}
	ArchI386    = Architecture{value: "i386"}
	ArchARM     = Architecture{value: "arm"}
	ArchRISCV64 = Architecture{value: "riscv64"}
	ArchPPC64   = Architecture{value: "ppc64"}
	ArchPPC     = Architecture{value: "ppc"}
)

var architectureAliases = map[string]Architecture{
	"x86_64":  ArchX86_64,
	"x86-64":  ArchX86_64,
	"amd64":   ArchX86_64,
	"arm64":   ArchARM64,
	"aarch64": ArchARM64,
	"arm64e":  ArchARM64,
	"i386":    ArchI386,
	"i686":    ArchI386,
	"386":     ArchI386,
	"x86":     ArchI386,
	"arm":     ArchARM,
	"armv7":   ArchARM,
	"riscv64": ArchRISCV64,
	"ppc64":   ArchPPC64,
	"ppc":     ArchPPC,
}

// NewArchitecture creates an Architecture, normalizing common aliases (amd64, aarch64, ...)
func NewArchitecture(value string) (Architecture, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return Architecture{}, fmt.Errorf("architecture cannot be empty")
	}
	if arch, ok := architectureAliases[normalized]; ok {
		return arch, nil
	}
	return Architecture{}, fmt.Errorf("unknown architecture: %s", value)
}

// Value returns the canonical architecture name
func (a Architecture) Value() string {
	return a.value
}

// String implements the Stringer interface
func (a Architecture) String() string {
	return a.value
}

// IsZero reports whether the architecture is unset
func (a Architecture) IsZero() bool {
	return a.value == ""
}

// ArchSet is an immutable, sorted set of architectures.
// Universal (fat) binaries carry more than one.
type ArchSet struct {
	values []Architecture
}

// NewArchSet builds a set from the given architectures, dropping duplicates and zero values
func NewArchSet(archs ...Architecture) ArchSet {
	seen := make(map[string]bool, len(archs))
	values := make([]Architecture, 0, len(archs))
	for _, arch := range archs {
		if arch.IsZero() || seen[arch.value] {
			continue
		}
		seen[arch.value] = true
		values = append(values, arch)
	}
	sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })
	return ArchSet{values: values}
}

// ParseArchSet parses architecture names into a set
func ParseArchSet(names []string) (ArchSet, error) {
	archs := make([]Architecture, 0, len(names))
	for _, name := range names {
		arch, err := NewArchitecture(name)
		if err != nil {
			return ArchSet{}, err
		}
		archs = append(archs, arch)
	}
	return NewArchSet(archs...), nil
}

// Values returns a copy of the architectures in the set
func (s ArchSet) Values() []Architecture {
	return append([]Architecture(nil), s.values...)
}

// Len returns the number of architectures
func (s ArchSet) Len() int {
	return len(s.values)
}

// IsEmpty reports whether the set has no architectures
func (s ArchSet) IsEmpty() bool {
	return len(s.values) == 0
}

// Contains reports whether the set includes arch
func (s ArchSet) Contains(arch Architecture) bool {
	for _, v := range s.values {
		if v == arch {
			return true
		}
	}
	return false
}

// Covers reports whether every architecture of required is present in s.
// An empty requirement is covered by any set.
func (s ArchSet) Covers(required ArchSet) bool {
	for _, arch := range required.values {
		if !s.Contains(arch) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same architectures
func (s ArchSet) Equal(other ArchSet) bool {
	return s.Covers(other) && other.Covers(s)
}

// Names returns the canonical names in sorted order
func (s ArchSet) Names() []string {
	names := make([]string, len(s.values))
	for i, v := range s.values {
		names[i] = v.value
	}
	return names
}

// String implements the Stringer interface
func (s ArchSet) String() string {
	if s.IsEmpty() {
		return "none"
	}
	return strings.Join(s.Names(), ",")
}
