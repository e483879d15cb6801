package domain

import (
	"fmt"
	"path"
	"strings"
)

// ReferenceKind classifies how a dependency reference locates its target
type ReferenceKind string

const (
	// ReferenceAbsolute is a full filesystem path (/opt/homebrew/lib/libfoo.dylib)
	ReferenceAbsolute ReferenceKind = "absolute"
	// ReferencePlaceholder is resolved by the loader relative to a symbolic location
	// (@rpath/libfoo.dylib, @loader_path/../lib/libfoo.dylib, $ORIGIN/libfoo.so)
	ReferencePlaceholder ReferenceKind = "placeholder"
	// ReferenceBare is a library name looked up on the loader search path (libfoo.so.1)
	ReferenceBare ReferenceKind = "bare"
)

// Loader placeholders understood by the resolver
const (
	PlaceholderRPath          = "@rpath"
	PlaceholderLoaderPath     = "@loader_path"
	PlaceholderExecutablePath = "@executable_path"
	PlaceholderOrigin         = "$ORIGIN"
)

var placeholders = []string{
	PlaceholderRPath,
	PlaceholderLoaderPath,
	PlaceholderExecutablePath,
	PlaceholderOrigin,
}

// Reference is a value object for one declared link from an artifact to a dependency,
// exactly as stored in the artifact's link records
type Reference struct {
	raw         string
	kind        ReferenceKind
	placeholder string
	remainder   string
}

// ParseReference classifies a raw link record value
func ParseReference(raw string) (Reference, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Reference{}, fmt.Errorf("reference cannot be empty")
	}

	normalized := strings.Replace(value, "${ORIGIN}", PlaceholderOrigin, 1)
	for _, p := range placeholders {
		if normalized == p || strings.HasPrefix(normalized, p+"/") {
			return Reference{
				raw:         value,
				kind:        ReferencePlaceholder,
				placeholder: p,
				remainder:   strings.TrimPrefix(strings.TrimPrefix(normalized, p), "/"),
			}, nil
		}
	}

	if strings.HasPrefix(value, "/") {
		return Reference{raw: value, kind: ReferenceAbsolute}, nil
	}
	return Reference{raw: value, kind: ReferenceBare}, nil
}

// Value returns the reference exactly as recorded
func (r Reference) Value() string {
	return r.raw
}

// String implements the Stringer interface
func (r Reference) String() string {
	return r.raw
}

// Kind returns the reference classification
func (r Reference) Kind() ReferenceKind {
	return r.kind
}

// Placeholder returns the loader placeholder, empty unless Kind is ReferencePlaceholder
func (r Reference) Placeholder() string {
	return r.placeholder
}

// Remainder returns the path following the placeholder
func (r Reference) Remainder() string {
	return r.remainder
}

// Name returns the base name of the referenced library.
// Bundled copies are stored under this name.
func (r Reference) Name() string {
	return path.Base(r.raw)
}

// IsAbsolute reports whether the reference is a full filesystem path
func (r Reference) IsAbsolute() bool {
	return r.kind == ReferenceAbsolute
}
