package z

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/valyala/bytebufferpool"
)

// EntryReaderOptions customises EntryReader.
type EntryReaderOptions struct {
	// SkipChecksum disables the CRC-32 comparison after the entry has been read in its entirety.
	SkipChecksum bool
}

// EntryReader is a lazy, forward-only reader of an entry's decompressed content.
//
// Nothing is read until the first Read, which opens the source at the local file header, validates it, then starts
// decompressing. Exactly UncompressedSize bytes are produced; after that, Read returns io.EOF, or a *ChecksumError if
// the CRC-32 does not match.
//
// EntryReader is not safe for concurrent use, but any number of EntryReader can be used concurrently as long as the
// sources returned by the open function don't share a cursor.
type EntryReader struct {
	entry *Entry
	open  func(offset uint64) io.Reader
	opts  EntryReaderOptions

	rc   io.ReadCloser
	hash hash.Hash32
	n    uint64
	err  error
}

// NewEntryReader creates a new EntryReader for the given entry.
//
// open is called at most once, with the offset of the local file header, to produce a source positioned at that
// offset. The source is never shared with any other EntryReader.
func NewEntryReader(e *Entry, open func(offset uint64) io.Reader, optFns ...func(*EntryReaderOptions)) *EntryReader {
	opts := &EntryReaderOptions{}
	for _, fn := range optFns {
		fn(opts)
	}

	return &EntryReader{entry: e, open: open, opts: *opts, hash: crc32.NewIEEE()}
}

// Read implements io.Reader.
func (r *EntryReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	if r.rc == nil {
		if r.err = r.init(); r.err != nil {
			return 0, r.err
		}
	}

	size := r.entry.UncompressedSize
	if r.n == size {
		r.err = r.finish()
		return 0, r.err
	}

	if remaining := size - r.n; uint64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := r.rc.Read(p)
	r.hash.Write(p[:n])
	r.n += uint64(n)

	switch {
	case err == nil, errors.Is(err, io.EOF) && r.n == size:
		return n, nil
	case errors.Is(err, io.EOF):
		r.err = io.ErrUnexpectedEOF
	default:
		r.err = fmt.Errorf(`decompress entry "%s" error: %w`, r.entry.Name, err)
	}

	return n, r.err
}

// Sum32 returns the CRC-32 of the bytes produced so far.
func (r *EntryReader) Sum32() uint32 {
	return r.hash.Sum32()
}

// Written returns the number of decompressed bytes produced so far.
func (r *EntryReader) Written() uint64 {
	return r.n
}

// Close releases the decompressor.
//
// Closing does not verify the checksum; only reading to the end does.
func (r *EntryReader) Close() error {
	if r.rc == nil {
		return nil
	}

	return r.rc.Close()
}

func (r *EntryReader) init() error {
	e := r.entry
	if e.IsEncrypted() {
		return ErrEncrypted
	}

	d := decompressor(e.Method)
	if d == nil {
		return &UnsupportedMethodError{Method: e.Method}
	}

	src := r.open(e.HeaderOffset)
	if err := skipLocalHeader(src); err != nil {
		return fmt.Errorf(`read local header of entry "%s" error: %w`, e.Name, err)
	}

	rc, err := d(io.LimitReader(src, int64(e.CompressedSize)), e)
	if err != nil {
		return fmt.Errorf(`create %s decompressor for entry "%s" error: %w`, e.Method, e.Name, err)
	}

	r.rc = rc
	return nil
}

// finish is called once all declared bytes have been produced.
func (r *EntryReader) finish() error {
	// a well-formed stream has nothing beyond the declared size.
	var one [1]byte
	if n, _ := io.ReadFull(r.rc, one[:]); n > 0 {
		return fmt.Errorf(`decompress entry "%s" error: more data than declared size of %d bytes`, r.entry.Name, r.entry.UncompressedSize)
	}

	if actual := r.hash.Sum32(); !r.opts.SkipChecksum && actual != r.entry.CRC32 {
		return &ChecksumError{Name: r.entry.Name, Expected: r.entry.CRC32, Actual: actual}
	}

	return io.EOF
}

// skipLocalHeader validates the local file header at the start of src and reads past it.
//
// The sizes in the local header may be zero (data descriptor) or sentinels (Zip64); the central directory values are
// authoritative so they are only validated for framing.
func skipLocalHeader(src io.Reader) error {
	var b [localHeaderLen]byte
	if _, err := io.ReadFull(src, b[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}

	if binary.LittleEndian.Uint32(b[:]) != sigLocalHeader {
		return ErrInvalidLocalHeader
	}

	n, m := int64(binary.LittleEndian.Uint16(b[26:])), int64(binary.LittleEndian.Uint16(b[28:]))

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	switch read, err := bb.ReadFrom(io.LimitReader(src, n+m)); {
	case err != nil:
		return err
	case read < n+m:
		return io.ErrUnexpectedEOF
	}

	if _, err := parseLocalExtraFields(bb.B[n:], zip64Needs{
		uncompressedSize: binary.LittleEndian.Uint32(b[22:]) == sentinel32,
		compressedSize:   binary.LittleEndian.Uint32(b[18:]) == sentinel32,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLocalHeader, err)
	}

	return nil
}
