package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback while pages are rendered.
type Reporter interface {
	Start(total int)
	Update(current int, page string)
	Finish()
}

// NewReporter returns a CIReporter if the CI environment variable is set,
// or a TerminalReporter otherwise.
func NewReporter(label string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{Out: os.Stderr}
	}
	return &TerminalReporter{Label: label}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	Label string
	bar   *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(r.Label),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, page string) {
	if r.bar != nil {
		r.bar.Describe(fmt.Sprintf("%s %s", r.Label, page))
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints one line per rendered page, suitable for CI logs.
type CIReporter struct {
	Out   io.Writer
	total int
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.Out, "Rendering %d pages\n", total)
}

func (r *CIReporter) Update(current int, page string) {
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", current, r.total, page)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.Out, "Rendering complete")
}

// Discard reports nothing.
type Discard struct{}

func (Discard) Start(int)          {}
func (Discard) Update(int, string) {}
func (Discard) Finish()            {}
