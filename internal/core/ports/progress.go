package ports

import "kilometers.ai/libbundle/internal/core/domain"

// ProgressObserver receives traversal progress notifications
type ProgressObserver interface {
	Visited(path string)
	Copied(name string)
	Warned(warning domain.UnresolvedDependency)
}
