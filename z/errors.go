package z

import (
	"errors"
	"fmt"
)

// FormatErrorKind enumerates the structural problems that make an archive invalid or unsupported.
type FormatErrorKind int

const (
	// DirectoryEndSignatureNotFound means the end of central directory record was not found.
	//
	// This usually indicates that the file being read is not a ZIP archive.
	DirectoryEndSignatureNotFound FormatErrorKind = iota + 1
	// Directory64EndRecordInvalid means a Zip64 end of central directory locator was found but the record it points
	// to could not be parsed.
	Directory64EndRecordInvalid
	// DirectoryOffsetPointsOutsideFile means the central directory offset points outside the file, most likely
	// because the file is corrupted or partial.
	DirectoryOffsetPointsOutsideFile
	// InvalidCentralRecord means fewer central directory headers could be read than the EOCD claims.
	InvalidCentralRecord
	// InvalidExtraField means an extra field that is supported could not be decoded.
	InvalidExtraField
	// ImpossibleNumberOfFiles means the EOCD claims more records than could possibly fit in the file.
	ImpossibleNumberOfFiles
)

func (k FormatErrorKind) String() string {
	switch k {
	case DirectoryEndSignatureNotFound:
		return "DirectoryEndSignatureNotFound"
	case Directory64EndRecordInvalid:
		return "Directory64EndRecordInvalid"
	case DirectoryOffsetPointsOutsideFile:
		return "DirectoryOffsetPointsOutsideFile"
	case InvalidCentralRecord:
		return "InvalidCentralRecord"
	case InvalidExtraField:
		return "InvalidExtraField"
	case ImpossibleNumberOfFiles:
		return "ImpossibleNumberOfFiles"
	default:
		return fmt.Sprintf("FormatErrorKind(%d)", int(k))
	}
}

// FormatError is returned when the archive is not a valid ZIP file, or is a variant that is not supported.
//
// Use errors.Is with one of the ErrDirectoryEndSignatureNotFound, etc. sentinels to test for a specific kind.
type FormatError struct {
	Kind FormatErrorKind

	// ClaimedRecordsCount and ZipSize are only set for ImpossibleNumberOfFiles.
	ClaimedRecordsCount uint64
	ZipSize             uint64
}

func (e *FormatError) Error() string {
	if e.Kind == ImpossibleNumberOfFiles {
		return fmt.Sprintf("zip: format error: %s (claimed %d records in %d bytes)", e.Kind, e.ClaimedRecordsCount, e.ZipSize)
	}

	return "zip: format error: " + e.Kind.String()
}

// Is matches any *FormatError with the same Kind.
func (e *FormatError) Is(target error) bool {
	var t *FormatError
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

var (
	// ErrDirectoryEndSignatureNotFound matches FormatError of kind DirectoryEndSignatureNotFound.
	ErrDirectoryEndSignatureNotFound error = &FormatError{Kind: DirectoryEndSignatureNotFound}
	// ErrDirectory64EndRecordInvalid matches FormatError of kind Directory64EndRecordInvalid.
	ErrDirectory64EndRecordInvalid error = &FormatError{Kind: Directory64EndRecordInvalid}
	// ErrDirectoryOffsetPointsOutsideFile matches FormatError of kind DirectoryOffsetPointsOutsideFile.
	ErrDirectoryOffsetPointsOutsideFile error = &FormatError{Kind: DirectoryOffsetPointsOutsideFile}
	// ErrInvalidCentralRecord matches FormatError of kind InvalidCentralRecord.
	ErrInvalidCentralRecord error = &FormatError{Kind: InvalidCentralRecord}
	// ErrInvalidExtraField matches FormatError of kind InvalidExtraField.
	ErrInvalidExtraField error = &FormatError{Kind: InvalidExtraField}
	// ErrImpossibleNumberOfFiles matches FormatError of kind ImpossibleNumberOfFiles regardless of counts.
	ErrImpossibleNumberOfFiles error = &FormatError{Kind: ImpossibleNumberOfFiles}
)

// EncodingError is returned when a name or comment cannot be decoded with the detected (or forced) encoding.
//
// This is distinct from FormatError so that callers can tell "not a zip" apart from "valid zip, unreadable text".
type EncodingError struct {
	Encoding Encoding
	Text     []byte
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("zip: cannot decode %q as %s: %v", e.Text, e.Encoding, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ErrUnknownSize is returned by convenience functions that cannot determine the size of the source up front.
var ErrUnknownSize = errors.New("zip: file size must be known to open zip archive")

var (
	// ErrUnsupportedMethod matches any *UnsupportedMethodError.
	ErrUnsupportedMethod = errors.New("zip: unsupported compression method")
	// ErrChecksum matches any *ChecksumError.
	ErrChecksum = errors.New("zip: checksum error")
	// ErrInvalidLocalHeader is returned by EntryReader if the local file header is missing or corrupted.
	ErrInvalidLocalHeader = errors.New("zip: invalid local file header")
	// ErrEncrypted is returned by EntryReader for encrypted entries which cannot be decrypted.
	ErrEncrypted = errors.New("zip: encrypted entries are not supported")
)

// UnsupportedMethodError is returned only when an entry using the method is actually read.
type UnsupportedMethodError struct {
	Method Method
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("zip: unsupported compression method %s", e.Method)
}

func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}

// ChecksumError is returned after an entry has been fully read if its CRC-32 does not match the central directory.
type ChecksumError struct {
	Name     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf(`zip: checksum mismatch for "%s": expected 0x%08x, got 0x%08x`, e.Name, e.Expected, e.Actual)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksum
}
