package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nguyengg/zr/util"
	"github.com/nguyengg/zr/z"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultBufferSize = 32 * 1024

	// maxLinkTargetLen bounds how much of a symlink entry is read as its target.
	maxLinkTargetLen = 4 * 1024
)

// Options customises Extract.
type Options struct {
	// PathStyle controls how entry names are sanitized.
	//
	// Default to DefaultPathStyle.
	PathStyle PathStyle

	// Reporter receives progress updates after every chunk written.
	//
	// If nil, progress is logged to Logger at most once every 5 seconds.
	Reporter Reporter

	// Logger is used for skipped entries and periodic progress.
	//
	// If nil, nothing is logged.
	Logger *log.Logger

	// Concurrency is the maximum number of files being written at the same time.
	//
	// Default to 1 which extracts entries in archive order. With higher values, an entry whose path is, contains, or
	// is contained by the path of a file still being written waits for that file first, so entries with duplicate
	// names still end up as if extracted in archive order.
	Concurrency int

	// NoOverwrite will skip entries whose path already exists.
	//
	// By default, existing files and symlinks are replaced.
	NoOverwrite bool

	// SkipChecksum disables CRC-32 verification.
	SkipChecksum bool

	// SymlinksSupported controls whether symlink entries become symlinks.
	//
	// If false, the symlink's target is written as the content of a regular file instead. Default to false on Windows
	// and true everywhere else.
	SymlinksSupported bool

	// ContinueOnError turns I/O, decompression, and checksum errors into skipped entries.
	//
	// By default, the first such error stops the extraction.
	ContinueOnError bool

	// BufferSize is the length of the buffer used to copy each file.
	//
	// Default to 32 KiB.
	BufferSize int
}

// Result summarises an extraction.
type Result struct {
	Files    int
	Dirs     int
	Symlinks int
	// Skipped counts entries with unsafe names or link targets, entries skipped due to NoOverwrite, and failed entries
	// if ContinueOnError is true.
	Skipped int
	// Bytes is the number of bytes written to regular files.
	Bytes   uint64
	Elapsed time.Duration
}

// Throughput returns the average number of bytes written per second.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}

	return float64(r.Bytes) / r.Elapsed.Seconds()
}

// Extract writes the entries of archive under dir.
//
// src must be the source that archive was read from. Entries are visited in archive order; directories are created
// right away, while file contents may be written concurrently (see Options.Concurrency). Entries whose names would
// escape dir, or symlinks whose targets would, are skipped.
//
// The returned Result is valid even if an error is returned.
func Extract(ctx context.Context, archive *z.Archive, src io.ReaderAt, dir string, optFns ...func(*Options)) (Result, error) {
	opts := &Options{
		PathStyle:         DefaultPathStyle,
		Concurrency:       1,
		SymlinksSupported: runtime.GOOS != "windows",
		BufferSize:        defaultBufferSize,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}

	x := &extractor{
		opts:      *opts,
		src:       src,
		dir:       dir,
		start:     time.Now(),
		sometimes: rate.Sometimes{Interval: 5 * time.Second},
	}
	for _, e := range archive.All() {
		if e.Kind() == z.KindFile {
			x.progress.total += e.UncompressedSize
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return x.result(), fmt.Errorf(`create output directory "%s" error: %w`, dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	var err error
	for _, e := range archive.All() {
		if gctx.Err() != nil {
			break
		}

		name, ok := opts.PathStyle.Sanitize(e.Name)
		if !ok || !checkParents(dir, filepath.FromSlash(name)) {
			x.skip(e, "unsafe path")
			continue
		}

		path := filepath.Join(dir, filepath.FromSlash(name))

		// entries must not touch a path that a file still being written owns.
		if opts.Concurrency > 1 && x.pending.wait(gctx, path) != nil {
			break
		}

		switch e.Kind() {
		case z.KindDirectory:
			err = x.handle(e, x.extractDir(e, path))
		case z.KindSymlink:
			err = x.handle(e, x.extractSymlink(gctx, e, path))
		default:
			if opts.Concurrency == 1 {
				err = x.handle(e, x.extractFile(gctx, e, path))
				break
			}

			release := x.pending.add(path)
			g.Go(func() error {
				defer release()
				return x.handle(e, x.extractFile(gctx, e, path))
			})
		}

		if err != nil {
			break
		}
	}

	if werr := g.Wait(); err == nil {
		err = werr
	}
	if err == nil {
		err = ctx.Err()
	}

	return x.result(), err
}

type extractor struct {
	opts  Options
	src   io.ReaderAt
	dir   string
	start time.Time

	progress  counter
	sometimes rate.Sometimes
	pending   pending

	files, dirs, symlinks, skipped atomic.Int64
}

func (x *extractor) result() Result {
	return Result{
		Files:    int(x.files.Load()),
		Dirs:     int(x.dirs.Load()),
		Symlinks: int(x.symlinks.Load()),
		Skipped:  int(x.skipped.Load()),
		Bytes:    x.progress.done.Load(),
		Elapsed:  time.Since(x.start),
	}
}

// handle decides whether an entry's error stops the extraction.
func (x *extractor) handle(e *z.Entry, err error) error {
	if err == nil {
		return nil
	}

	if x.opts.ContinueOnError && !errors.Is(err, context.Canceled) {
		x.skip(e, err.Error())
		return nil
	}

	return fmt.Errorf(`extract "%s" error: %w`, e.Name, err)
}

func (x *extractor) skip(e *z.Entry, reason string) {
	x.skipped.Add(1)
	x.opts.Logger.Printf(`skipped "%s": %s`, e.Name, reason)
}

func (x *extractor) report(name string, n int) {
	done := x.progress.add(n)

	if x.opts.Reporter != nil {
		x.opts.Reporter.Report(done, x.progress.total, name)
		return
	}

	x.sometimes.Do(func() {
		x.opts.Logger.Printf(`extracted %s of %s so far (%s)`, humanize.IBytes(done), humanize.IBytes(x.progress.total), name)
	})
}

func (x *extractor) extractDir(e *z.Entry, path string) error {
	if err := os.MkdirAll(path, e.Mode().Perm()|0700); err != nil {
		return err
	}

	x.dirs.Add(1)
	return nil
}

func (x *extractor) extractFile(ctx context.Context, e *z.Entry, path string) error {
	switch written, err := x.writeFile(ctx, e, path, true); {
	case err != nil:
		return err
	case written:
		x.files.Add(1)
	}

	return nil
}

// writeFile copies the entry's content to a regular file at path.
//
// Returns false if the file was skipped due to NoOverwrite.
func (x *extractor) writeFile(ctx context.Context, e *z.Entry, path string, track bool) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create parent directories error: %w", err)
	}

	switch fi, err := os.Lstat(path); {
	case err == nil && x.opts.NoOverwrite:
		x.skip(e, "file exists")
		return false, nil
	case err == nil && fi.IsDir():
		return false, fmt.Errorf(`"%s" is an existing directory`, path)
	case err == nil:
		// O_TRUNC would follow a symlink, and fails on a read-only file.
		if err = os.Remove(path); err != nil {
			return false, fmt.Errorf("remove existing file error: %w", err)
		}
	case err != nil && !os.IsNotExist(err):
		return false, err
	}

	w, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, e.Mode().Perm())
	if err != nil {
		return false, fmt.Errorf("create file error: %w", err)
	}

	r := e.Reader(x.src, func(opts *z.EntryReaderOptions) {
		opts.SkipChecksum = x.opts.SkipChecksum
	})

	var src io.Reader = r
	if track {
		src = NewProgressReader(r, e.UncompressedSize, func(_ Progress, n int) {
			x.report(e.Name, n)
		})
	}

	_, err = util.CopyBufferWithContext(ctx, w, src, make([]byte, x.opts.BufferSize))
	_ = r.Close()
	if cerr := w.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close file error: %w", cerr)
	}
	if err != nil {
		return false, err
	}

	if err = os.Chtimes(path, time.Time{}, e.Modified); err != nil {
		return false, fmt.Errorf("change mod time error: %w", err)
	}

	return true, nil
}

func (x *extractor) extractSymlink(ctx context.Context, e *z.Entry, path string) error {
	if !x.opts.SymlinksSupported {
		switch written, err := x.writeFile(ctx, e, path, false); {
		case err != nil:
			return err
		case written:
			x.symlinks.Add(1)
		}

		return nil
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	r := e.Reader(x.src, func(opts *z.EntryReaderOptions) {
		opts.SkipChecksum = x.opts.SkipChecksum
	})
	defer r.Close()

	if _, err := bb.ReadFrom(io.LimitReader(r, maxLinkTargetLen+1)); err != nil {
		return fmt.Errorf("read symlink target error: %w", err)
	}
	if bb.Len() > maxLinkTargetLen {
		x.skip(e, "symlink target too long")
		return nil
	}

	target := bb.String()
	if !x.opts.PathStyle.ValidateLinkTarget(target) {
		x.skip(e, fmt.Sprintf(`unsafe symlink target "%s"`, target))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent directories error: %w", err)
	}

	if fi, err := os.Lstat(path); err == nil {
		switch {
		case x.opts.NoOverwrite:
			x.skip(e, "file exists")
			return nil
		case fi.Mode().IsRegular(), fi.Mode()&os.ModeSymlink != 0:
			if err = os.Remove(path); err != nil {
				return fmt.Errorf("remove existing file error: %w", err)
			}
		}
	}

	if err := os.Symlink(filepath.FromSlash(target), path); err != nil {
		return fmt.Errorf("create symlink error: %w", err)
	}

	x.symlinks.Add(1)
	return nil
}

// pending tracks the paths of files being written concurrently.
type pending struct {
	mu    sync.Mutex
	paths map[string]chan struct{}
}

// add marks path as in flight until the returned function is called.
func (p *pending) add(path string) func() {
	done := make(chan struct{})

	p.mu.Lock()
	if p.paths == nil {
		p.paths = make(map[string]chan struct{})
	}
	p.paths[path] = done
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.paths, path)
		p.mu.Unlock()
		close(done)
	}
}

// wait blocks until no in-flight path overlaps path.
func (p *pending) wait(ctx context.Context, path string) error {
	for {
		var done chan struct{}

		p.mu.Lock()
		for other, ch := range p.paths {
			if overlaps(path, other) {
				done = ch
				break
			}
		}
		p.mu.Unlock()

		if done == nil {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// overlaps returns true if a and b are the same path or one is an ancestor of the other.
func overlaps(a, b string) bool {
	sep := string(filepath.Separator)
	return a == b || strings.HasPrefix(a, b+sep) || strings.HasPrefix(b, a+sep)
}
