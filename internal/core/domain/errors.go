package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes attached to unresolved dependencies and format selection
var (
	ErrArchitectureMismatch = fmt.Errorf("architecture mismatch")
	ErrNotInSearchPaths     = fmt.Errorf("not found in any search path")
	ErrUnsupportedFormat    = fmt.Errorf("unsupported binary format")
)

// NotFoundError reports a missing root artifact. It is fatal for a bundling run.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("artifact not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// UnresolvedDependency is a recoverable warning: a non-excluded dependency could not be
// located for the required architectures. Traversal continues past it.
type UnresolvedDependency struct {
	Name          string   `json:"name"`
	Reference     string   `json:"reference"`
	Referrer      string   `json:"referrer"`
	Architectures ArchSet  `json:"-"`
	Candidates    []string `json:"candidates,omitempty"`
	Cause         error    `json:"-"`
}

func (u UnresolvedDependency) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unresolved dependency %s (%s) required by %s", u.Name, u.Architectures, u.Referrer)
	if u.Cause != nil {
		fmt.Fprintf(&b, ": %v", u.Cause)
	}
	if len(u.Candidates) > 0 {
		fmt.Fprintf(&b, " (rejected: %s)", strings.Join(u.Candidates, ", "))
	}
	return b.String()
}

func (u UnresolvedDependency) Unwrap() error {
	return u.Cause
}

// Key identifies the warning for de-duplication within one run
func (u UnresolvedDependency) Key() string {
	return u.Name + "|" + u.Architectures.String()
}

// IsArchitectureMismatch reports whether same-named candidates existed but none matched
func (u UnresolvedDependency) IsArchitectureMismatch() bool {
	return errors.Is(u.Cause, ErrArchitectureMismatch)
}
