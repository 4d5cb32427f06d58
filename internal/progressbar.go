package internal

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nguyengg/zr/extract"
	"github.com/schollz/progressbar/v3"
)

// DefaultBytes is equivalent to progressbar.DefaultBytes but with higher progressbar.OptionThrottle.
func DefaultBytes(maxBytes int64, description string, options ...progressbar.Option) *progressbar.ProgressBar {
	return progressbar.NewOptions64(maxBytes,
		append([]progressbar.Option{
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(1 * time.Second),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true)},
			options...)...)
}

// BarReporter is an extract.Reporter that renders to a progress bar.
//
// Reports may arrive out of order when files are extracted concurrently, so the bar only ever moves forward.
type BarReporter struct {
	Bar *progressbar.ProgressBar

	mu   sync.Mutex
	done uint64
}

var _ extract.Reporter = &BarReporter{}

// NewBarReporter creates a BarReporter with a DefaultBytes bar.
func NewBarReporter(total uint64, description string, options ...progressbar.Option) *BarReporter {
	return &BarReporter{Bar: DefaultBytes(int64(total), description, options...)}
}

// Report implements extract.Reporter.
func (r *BarReporter) Report(done, _ uint64, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if done <= r.done {
		return
	}

	r.done = done
	_ = r.Bar.Set64(int64(done))
}

// Close finishes the bar.
func (r *BarReporter) Close() error {
	return r.Bar.Close()
}
