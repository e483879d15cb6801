package ports

// FileStore places dependencies into the bundle directory
type FileStore interface {
	// CopyFile copies src to dst atomically and applies mode
	CopyFile(src, dst string, mode uint32) error

	// Exists reports whether path is present (a dangling symlink counts)
	Exists(path string) bool

	// EnsureDir creates dir and any missing parents
	EnsureDir(dir string) error
}
