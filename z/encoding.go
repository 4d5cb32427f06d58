package z

import (
	"bytes"
	"errors"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Encoding is the text encoding used for entry names and comments.
type Encoding int

const (
	// UTF8 is used for every record that has general purpose bit 11 set, and for archives whose legacy text happens
	// to be valid UTF-8.
	UTF8 Encoding = iota
	// CP437 is the original IBM PC code page which the ZIP specification mandates in the absence of bit 11.
	CP437
	// ShiftJIS is commonly produced by Japanese versions of Windows.
	ShiftJIS
)

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case CP437:
		return "cp-437"
	case ShiftJIS:
		return "shift-jis"
	default:
		return "Encoding(" + strconv.Itoa(int(e)) + ")"
	}
}

var (
	errInvalidUTF8     = errors.New("invalid utf-8 sequence")
	errInvalidShiftJIS = errors.New("invalid shift-jis sequence")
	errUnknownEncoding = errors.New("unknown encoding")
)

// Decode decodes the given text.
//
// Returns an *EncodingError if the text contains byte sequences that are invalid in this encoding. CP437 maps every
// byte so it never fails.
func (e Encoding) Decode(text []byte) (string, error) {
	if isASCII(text) {
		return string(text), nil
	}

	switch e {
	case UTF8:
		if !utf8.Valid(text) {
			return "", &EncodingError{Encoding: e, Text: text, Err: errInvalidUTF8}
		}

		return string(text), nil
	case CP437:
		b, err := charmap.CodePage437.NewDecoder().Bytes(text)
		if err != nil {
			return "", &EncodingError{Encoding: e, Text: text, Err: err}
		}

		return string(b), nil
	case ShiftJIS:
		b, err := japanese.ShiftJIS.NewDecoder().Bytes(text)
		if err != nil {
			return "", &EncodingError{Encoding: e, Text: text, Err: err}
		}
		// the decoder substitutes invalid sequences instead of failing.
		if bytes.ContainsRune(b, utf8.RuneError) {
			return "", &EncodingError{Encoding: e, Text: text, Err: errInvalidShiftJIS}
		}

		return string(b), nil
	default:
		return "", &EncodingError{Encoding: e, Text: text, Err: errUnknownEncoding}
	}
}

// DetectEncoding guesses the legacy encoding of the given texts.
//
// The texts should only include names and comments from records without the UTF-8 flag. If all of them are valid
// UTF-8 (which includes pure ASCII), UTF8 is returned. If they decode cleanly as Shift-JIS and contain at least one
// double-byte character, ShiftJIS is returned. CP437 is the fallback.
func DetectEncoding(texts ...[]byte) Encoding {
	allUTF8 := true
	for _, t := range texts {
		if !utf8.Valid(t) {
			allUTF8 = false
			break
		}
	}
	if allUTF8 {
		return UTF8
	}

	hasDoubleByte := false
	for _, t := range texts {
		switch ok, db := scanShiftJIS(t); {
		case !ok:
			return CP437
		case db:
			hasDoubleByte = true
		}
	}

	if hasDoubleByte {
		return ShiftJIS
	}

	return CP437
}

// scanShiftJIS validates the structure of a Shift-JIS byte sequence.
//
// ok is false if a lead byte is not followed by a valid trail byte, or if a byte is never valid in Shift-JIS.
func scanShiftJIS(b []byte) (ok, hasDoubleByte bool) {
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c < 0x80, 0xa1 <= c && c <= 0xdf:
			// ASCII and half-width katakana.
		case 0x81 <= c && c <= 0x9f, 0xe0 <= c && c <= 0xfc:
			if i+1 >= len(b) {
				return false, hasDoubleByte
			}

			if t := b[i+1]; t < 0x40 || t == 0x7f || t > 0xfc {
				return false, hasDoubleByte
			}

			i++
			hasDoubleByte = true
		default:
			return false, hasDoubleByte
		}
	}

	return true, hasDoubleByte
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}

	return true
}
