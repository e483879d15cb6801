package testfixtures

import (
	"os"
	"path/filepath"
	"sort"
)

// GraphBuilder lays out a synthetic application and package-manager tree of fake
// binaries under a base directory. I/O failures panic: it is only used by tests.
type GraphBuilder struct {
	base string
}

// NewGraphBuilder creates a builder rooted at base
func NewGraphBuilder(base string) *GraphBuilder {
	return &GraphBuilder{base: base}
}

// Base returns the builder's root directory
func (g *GraphBuilder) Base() string {
	return g.base
}

// Dir returns (and creates) a directory below the base
func (g *GraphBuilder) Dir(rel string) string {
	dir := filepath.Join(g.base, rel)
	must(os.MkdirAll(dir, 0755))
	return dir
}

// AppDirs returns the executable and bundle directories of a macOS style app
func (g *GraphBuilder) AppDirs() (macOS, frameworks string) {
	return g.Dir("App.app/Contents/MacOS"), filepath.Join(g.base, "App.app/Contents/Frameworks")
}

// Binary writes a fake binary into dir and returns its path
func (g *GraphBuilder) Binary(dir, name string, archs []string, deps ...string) string {
	path := filepath.Join(dir, name)
	must(os.MkdirAll(dir, 0755))
	must(WriteFakeBinary(path, FakeBinary{Architectures: archs, Dependencies: deps}))
	return path
}

// Contents reads every fake binary in dir keyed by file name
func (g *GraphBuilder) Contents(dir string) map[string]FakeBinary {
	out := make(map[string]FakeBinary)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return out
	}
	must(err)
	for _, e := range entries {
		bin, err := ReadFakeBinary(filepath.Join(dir, e.Name()))
		must(err)
		out[e.Name()] = bin
	}
	return out
}

// Names lists the file names in dir, sorted
func (g *GraphBuilder) Names(dir string) []string {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	must(err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
