package extract

import (
	"io"
	"sync/atomic"
)

// Progress is the state of one in-flight entry.
type Progress struct {
	Done  uint64
	Total uint64
}

// Reporter receives the running totals of an extraction.
//
// done is monotonic and never exceeds total for well-formed archives. With Options.Concurrency greater than 1, Report
// is called from multiple goroutines so implementations must be safe for concurrent use.
type Reporter interface {
	Report(done, total uint64, name string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(done, total uint64, name string)

func (f ReporterFunc) Report(done, total uint64, name string) {
	f(done, total, name)
}

// ProgressReader counts the bytes read through it.
//
// The callback, if given, is invoked after every read that returns data.
type ProgressReader struct {
	r        io.Reader
	progress Progress
	callback func(p Progress, n int)
}

// NewProgressReader wraps r whose expected size is total.
func NewProgressReader(r io.Reader, total uint64, callback func(p Progress, n int)) *ProgressReader {
	return &ProgressReader{r: r, progress: Progress{Total: total}, callback: callback}
}

// Read implements io.Reader.
func (r *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = r.r.Read(p)
	if n > 0 {
		r.progress.Done += uint64(n)
		if r.callback != nil {
			r.callback(r.progress, n)
		}
	}

	return
}

// counter is the archive-wide byte counter shared by every ProgressReader of one extraction.
type counter struct {
	done  atomic.Uint64
	total uint64
}

func (c *counter) add(n int) uint64 {
	return c.done.Add(uint64(n))
}
