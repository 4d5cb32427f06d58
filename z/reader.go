package z

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Options customises how an archive is parsed.
type Options struct {
	// Ctx can be given to cancel ReadZip and friends between reads.
	//
	// ArchiveReader itself never blocks so it ignores Ctx.
	Ctx context.Context

	// Encoding forces the encoding of records that don't have the UTF-8 flag.
	//
	// By default, the encoding is detected from the names and comments of those records.
	Encoding *Encoding
}

type readerState int

const (
	stateReadEOCD readerState = iota
	stateReadZip64EOCD
	stateReadCentralDirectory
	stateDone
)

// readChunkSize is the minimum number of bytes requested by each ArchiveReader.Read.
const readChunkSize = 64 * 1024

// ArchiveReader parses the metadata of a ZIP archive without doing any I/O of its own.
//
// The caller drives ArchiveReader with this loop:
//
//	ar := NewArchiveReader(size)
//	for {
//		if offset, ok := ar.WantsRead(); ok {
//			// src must be positioned at offset.
//			if _, err := ar.Read(src); err != nil {
//				return nil, err
//			}
//		}
//
//		archive, err := ar.Process()
//		if err != nil || archive != nil {
//			return archive, err
//		}
//	}
//
// Because the caller performs every read, the same ArchiveReader works with blocking files, ranged HTTP requests, or
// anything that can produce bytes from an arbitrary offset. ReadZip implements the loop for io.ReaderAt.
//
// ArchiveReader is not safe for concurrent use.
type ArchiveReader struct {
	size  uint64
	opts  Options
	state readerState

	// buf holds the data of the current state starting at the absolute offset bufOffset.
	buf       []byte
	bufOffset uint64
	// pos is how much of buf has been parsed already.
	pos int
	// want is the absolute offset up to which the current state needs data.
	want uint64
	// limit is the absolute offset that reads must not go past.
	limit uint64

	eocd       eocdRecord
	eocdOffset uint64
	locator    zip64Locator
	zip64      *zip64EOCDRecord
	dir        directoryEnd
	baseOffset uint64
	headers    []centralHeader

	archive *Archive
	err     error
}

// NewArchiveReader creates a new ArchiveReader for an archive of the given size.
func NewArchiveReader(size uint64, optFns ...func(*Options)) *ArchiveReader {
	opts := &Options{Ctx: context.Background()}
	for _, fn := range optFns {
		fn(opts)
	}

	r := &ArchiveReader{size: size, opts: *opts}

	// the EOCD is at most eocdLen+maxCommentLen from the end. the extra bytes make sure the Zip64 locator that
	// precedes it is always in the same window.
	window := min(size, eocdLen+maxCommentLen+zip64LocatorLen)
	r.reset(size-window, size, size)
	return r
}

// WantsRead returns the absolute offset that the next Read should read from.
//
// The boolean return value is false if Process can make progress with the data that is already buffered.
func (r *ArchiveReader) WantsRead() (uint64, bool) {
	if r.err != nil || r.state == stateDone {
		return 0, false
	}

	if end := r.bufOffset + uint64(len(r.buf)); end < r.want {
		return end, true
	}

	return 0, false
}

// Read reads once from src into the internal buffer.
//
// src must be positioned at the offset returned by WantsRead. Returns the number of bytes read. If src has no more
// data, io.ErrUnexpectedEOF is returned since the parser still needs it.
func (r *ArchiveReader) Read(src io.Reader) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	end := r.bufOffset + uint64(len(r.buf))
	if end >= r.limit {
		return 0, io.ErrUnexpectedEOF
	}

	n := int(min(max(r.want-min(r.want, end), readChunkSize), r.limit-end))
	r.buf = slices.Grow(r.buf, n)

	m, err := src.Read(r.buf[len(r.buf) : len(r.buf)+n])
	r.buf = r.buf[:len(r.buf)+m]

	switch {
	case err != nil && !errors.Is(err, io.EOF):
		return m, err
	case m == 0:
		return 0, io.ErrUnexpectedEOF
	default:
		return m, nil
	}
}

// Process advances the parse by one step.
//
// Returns a nil Archive and nil error if the caller should continue the loop, i.e. check WantsRead again. Once an
// Archive or an error is returned, subsequent calls keep returning the same result.
func (r *ArchiveReader) Process() (*Archive, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.state == stateDone {
		return r.archive, nil
	}
	if _, ok := r.WantsRead(); ok {
		return nil, nil
	}

	var err error
	switch r.state {
	case stateReadEOCD:
		err = r.processEOCD()
	case stateReadZip64EOCD:
		err = r.processZip64EOCD()
	case stateReadCentralDirectory:
		err = r.processCentralDirectory()
	}

	if err != nil {
		r.err, r.buf, r.headers = err, nil, nil
		return nil, err
	}

	if r.state == stateDone {
		return r.archive, nil
	}

	return nil, nil
}

func (r *ArchiveReader) reset(offset, want, limit uint64) {
	r.buf, r.bufOffset, r.pos, r.want, r.limit = r.buf[:0], offset, 0, want, limit
}

func (r *ArchiveReader) processEOCD() error {
	i := findEOCD(r.buf)
	if i < 0 {
		return ErrDirectoryEndSignatureNotFound
	}

	eocd, err := unmarshalEOCDRecord(r.buf[i:])
	if err != nil {
		return fmt.Errorf("read EOCD error: %w", err)
	}
	r.eocd, r.eocdOffset = eocd, r.bufOffset+uint64(i)

	if i >= zip64LocatorLen {
		if l, ok := unmarshalZip64Locator(r.buf[i-zip64LocatorLen:]); ok {
			if r.size < zip64EOCDLen || l.EOCD64Offset > r.size-zip64EOCDLen {
				return ErrDirectory64EndRecordInvalid
			}

			r.locator = l
			r.state = stateReadZip64EOCD
			r.reset(l.EOCD64Offset, l.EOCD64Offset+zip64EOCDLen, l.EOCD64Offset+zip64EOCDLen)
			return nil
		}
	}

	return r.startCentralDirectory()
}

func (r *ArchiveReader) processZip64EOCD() error {
	z64, err := unmarshalZip64EOCDRecord(r.buf)
	if err != nil {
		return err
	}

	r.zip64 = &z64
	return r.startCentralDirectory()
}

func (r *ArchiveReader) startCentralDirectory() error {
	r.dir = resolveDirectoryEnd(r.eocd, r.eocdOffset, r.zip64, r.locator.EOCD64Offset)
	if r.dir.offset >= r.size {
		return ErrDirectoryOffsetPointsOutsideFile
	}

	// data may have been prepended to the archive (e.g. self-extracting stub) in which case the central directory
	// does not end where the EOCD starts.
	if r.zip64 == nil && r.dir.size <= r.size {
		if cdEnd := r.dir.offset + r.dir.size; cdEnd < r.dir.endOffset {
			r.baseOffset = r.dir.endOffset - cdEnd
		}
	}

	return r.seekCentralDirectory()
}

func (r *ArchiveReader) seekCentralDirectory() error {
	start := r.dir.offset + r.baseOffset
	if start >= r.size {
		return ErrDirectoryOffsetPointsOutsideFile
	}

	// each record takes at least centralHeaderLen bytes, so refuse to even start on an impossible count.
	if count := r.dir.recordsCount; count > (r.size-start)/centralHeaderLen {
		return &FormatError{Kind: ImpossibleNumberOfFiles, ClaimedRecordsCount: count, ZipSize: r.size}
	}

	r.headers = make([]centralHeader, 0, min(r.dir.recordsCount, 1024))
	r.state = stateReadCentralDirectory

	want := start
	if r.dir.recordsCount > 0 {
		want += centralHeaderLen
	}
	r.reset(start, want, r.size)
	return nil
}

func (r *ArchiveReader) processCentralDirectory() error {
	for uint64(len(r.headers)) < r.dir.recordsCount {
		b := r.buf[r.pos:]
		if len(b) < centralHeaderLen {
			return r.need(centralHeaderLen)
		}

		if binary.LittleEndian.Uint32(b) != sigCentralHeader {
			if len(r.headers) == 0 && r.baseOffset != 0 {
				// some writers already account for the prepended data in their offsets.
				r.baseOffset = 0
				return r.seekCentralDirectory()
			}

			return ErrInvalidCentralRecord
		}

		n := centralHeaderSize(b)
		if len(b) < n {
			return r.need(n)
		}

		h, err := unmarshalCentralHeader(b)
		if err != nil {
			return ErrInvalidCentralRecord
		}

		r.headers = append(r.headers, h)
		r.pos += n
	}

	return r.finish()
}

// need discards the parsed part of the buffer and asks for n bytes past it.
func (r *ArchiveReader) need(n int) error {
	r.bufOffset += uint64(r.pos)
	r.buf = append(r.buf[:0], r.buf[r.pos:]...)
	r.pos = 0

	if r.want = r.bufOffset + uint64(n); r.want > r.limit {
		return ErrInvalidCentralRecord
	}

	return nil
}

func (r *ArchiveReader) finish() error {
	var enc Encoding
	if r.opts.Encoding != nil {
		enc = *r.opts.Encoding
	} else {
		texts := make([][]byte, 0, 2*len(r.headers)+1)
		for i := range r.headers {
			if h := &r.headers[i]; h.Flags&flagUTF8 == 0 {
				texts = append(texts, h.name, h.comment)
			}
		}
		enc = DetectEncoding(append(texts, r.dir.comment)...)
	}

	entries := make([]Entry, 0, len(r.headers))
	for i := range r.headers {
		e, err := r.headers[i].toEntry(enc, r.baseOffset)
		if err != nil {
			return fmt.Errorf("read central directory record #%d error: %w", i, err)
		}

		entries = append(entries, e)
	}

	comment, err := enc.Decode(r.dir.comment)
	if err != nil {
		return fmt.Errorf("read archive comment error: %w", err)
	}

	r.archive = &Archive{
		size:       r.size,
		comment:    comment,
		hasComment: len(r.dir.comment) > 0,
		encoding:   enc,
		entries:    entries,
	}
	r.state, r.buf, r.headers = stateDone, nil, nil
	return nil
}
