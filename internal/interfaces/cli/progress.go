package cli

import (
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"kilometers.ai/libbundle/internal/core/domain"
	coreports "kilometers.ai/libbundle/internal/core/ports"
)

// progressObserver drives a spinner while a closure is traversed
type progressObserver struct {
	bar      *progressbar.ProgressBar
	visited  int
	copied   int
	warnings int
}

func newProgressObserver(w io.Writer, root string) *progressObserver {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Scanning "+filepath.Base(root)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) Visited(path string) {
	p.visited++
	p.bar.Describe("Scanning " + filepath.Base(path))
	p.bar.Add(1)
}

func (p *progressObserver) Copied(name string) {
	p.copied++
	p.bar.Describe("Copied " + name)
}

func (p *progressObserver) Warned(w domain.UnresolvedDependency) {
	p.warnings++
}

// Finish stops the spinner and clears its line
func (p *progressObserver) Finish() {
	p.bar.Finish()
}

var _ coreports.ProgressObserver = (*progressObserver)(nil)
