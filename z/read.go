package z

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ReadZip reads the archive metadata from src using blocking reads.
//
// The size of the archive must be known up front, see ReadZipFrom if src can tell its own size. Options.Ctx is checked
// in between reads.
func ReadZip(src io.ReaderAt, size int64, optFns ...func(*Options)) (*Archive, error) {
	if size < 0 {
		return nil, ErrUnknownSize
	}

	opts := &Options{Ctx: context.Background()}
	for _, fn := range optFns {
		fn(opts)
	}

	ar := NewArchiveReader(uint64(size), func(o *Options) {
		*o = *opts
	})

	for {
		select {
		case <-opts.Ctx.Done():
			return nil, opts.Ctx.Err()
		default:
		}

		if offset, ok := ar.WantsRead(); ok {
			if _, err := ar.Read(io.NewSectionReader(src, int64(offset), size-int64(offset))); err != nil {
				return nil, fmt.Errorf("read archive at offset %d error: %w", offset, err)
			}
		}

		switch archive, err := ar.Process(); {
		case err != nil:
			return nil, err
		case archive != nil:
			return archive, nil
		}
	}
}

// ReadZipFrom is a variant of ReadZip that determines the size from src.
//
// src must either have a `Size() int64` method (bytes.Reader, strings.Reader, io.SectionReader) or a
// `Stat() (os.FileInfo, error)` method (os.File). ErrUnknownSize is returned otherwise.
func ReadZipFrom(src io.ReaderAt, optFns ...func(*Options)) (*Archive, error) {
	switch v := src.(type) {
	case interface{ Size() int64 }:
		return ReadZip(src, v.Size(), optFns...)
	case interface{ Stat() (os.FileInfo, error) }:
		fi, err := v.Stat()
		if err != nil {
			return nil, fmt.Errorf("%w: stat error: %w", ErrUnknownSize, err)
		}

		return ReadZip(src, fi.Size(), optFns...)
	default:
		return nil, ErrUnknownSize
	}
}

// ReadCloser is an Archive backed by an open file.
type ReadCloser struct {
	*Archive
	f *os.File
}

// OpenReader opens the named file and reads its archive metadata.
//
// Caller must close the returned ReadCloser once all entries have been read.
func OpenReader(name string, optFns ...func(*Options)) (*ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	archive, err := ReadZipFrom(f, optFns...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &ReadCloser{Archive: archive, f: f}, nil
}

// Open returns a new EntryReader for the given entry.
//
// Entries can be opened and read concurrently since os.File supports concurrent ReadAt.
func (rc *ReadCloser) Open(e *Entry, optFns ...func(*EntryReaderOptions)) *EntryReader {
	return e.Reader(rc.f, optFns...)
}

// ReaderAt returns the underlying file.
func (rc *ReadCloser) ReaderAt() io.ReaderAt {
	return rc.f
}

// Close closes the underlying file.
func (rc *ReadCloser) Close() error {
	return rc.f.Close()
}
