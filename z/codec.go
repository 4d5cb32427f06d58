package z

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Decompressor creates a reader that decompresses the entry's body from r.
//
// r is limited to the entry's compressed size. The entry is given for codecs that need its metadata.
type Decompressor func(r io.Reader, e *Entry) (io.ReadCloser, error)

var decompressors sync.Map // map[Method]Decompressor

func init() {
	RegisterDecompressor(Store, func(r io.Reader, _ *Entry) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	})
	RegisterDecompressor(Deflate, func(r io.Reader, _ *Entry) (io.ReadCloser, error) {
		return flate.NewReader(r), nil
	})
	RegisterDecompressor(BZip2, func(r io.Reader, _ *Entry) (io.ReadCloser, error) {
		return bzip2.NewReader(r, nil)
	})
	RegisterDecompressor(LZMA, newLZMAReader)
	RegisterDecompressor(Zstd, func(r io.Reader, _ *Entry) (io.ReadCloser, error) {
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}

		return d.IOReadCloser(), nil
	})
	RegisterDecompressor(XZ, func(r io.Reader, _ *Entry) (io.ReadCloser, error) {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}

		return io.NopCloser(xr), nil
	})
}

// RegisterDecompressor registers or replaces the Decompressor for a method.
//
// Methods without a Decompressor can still be parsed; reading them returns an *UnsupportedMethodError.
func RegisterDecompressor(m Method, d Decompressor) {
	decompressors.Store(m, d)
}

func decompressor(m Method) Decompressor {
	if d, ok := decompressors.Load(m); ok {
		return d.(Decompressor)
	}

	return nil
}

var errLZMAProperties = errors.New("invalid lzma properties")

// newLZMAReader translates the ZIP flavour of LZMA into the classic .lzma stream that lzma.NewReader expects.
//
// ZIP prefixes the stream with a 2-byte version and a 2-byte properties size followed by the 5-byte properties. The
// classic header instead has the 5-byte properties followed by the 8-byte uncompressed size, which is all ones if the
// stream is terminated by an end-of-stream marker (general purpose bit 1).
func newLZMAReader(r io.Reader, e *Entry) (io.ReadCloser, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read lzma header error: %w", err)
	}

	n := int(binary.LittleEndian.Uint16(prefix[2:]))
	if n != 5 {
		return nil, errLZMAProperties
	}

	header := make([]byte, 13)
	if _, err := io.ReadFull(r, header[:5]); err != nil {
		return nil, fmt.Errorf("read lzma properties error: %w", err)
	}

	size := e.UncompressedSize
	if e.Flags&flagLZMAEOS != 0 {
		size = 1<<64 - 1
	}
	binary.LittleEndian.PutUint64(header[5:], size)

	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), r))
	if err != nil {
		return nil, err
	}

	return io.NopCloser(lr), nil
}
