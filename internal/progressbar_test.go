package internal

import (
	"io"
	"sync"
	"testing"

	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
)

func TestBarReporter(t *testing.T) {
	r := NewBarReporter(100, "test", progressbar.OptionSetWriter(io.Discard))

	r.Report(10, 100, "a")
	r.Report(50, 100, "b")
	r.Report(30, 100, "a")
	assert.Equal(t, int64(50), r.Bar.State().CurrentNum)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(done uint64) {
			defer wg.Done()
			r.Report(done, 100, "c")
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, int64(100), r.Bar.State().CurrentNum)
	assert.NoError(t, r.Close())
}
