package z

import (
	"io"
	"io/fs"
	"strings"
	"time"
)

// Entry is one central directory record.
//
// Entry values are produced by ArchiveReader and never mutated afterwards. CompressedSize, UncompressedSize, and
// HeaderOffset always hold their final 64-bit values, i.e. the Zip64 extra field has already been applied.
type Entry struct {
	// Name is the decoded name of the entry, using `/` as separator. Directories end with `/`.
	Name string
	// Comment is the decoded per-entry comment.
	Comment string

	Method           Method
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64

	// Modified comes from the NTFS or extended timestamp extra fields when present, falling back to the MS-DOS
	// date and time which has a resolution of 2s and no time zone.
	Modified time.Time
	// Created and Accessed are only known if an extra field carried them.
	Created  *time.Time
	Accessed *time.Time

	// UID and GID are only known if an Info-ZIP Unix extra field carried them.
	UID *uint32
	GID *uint32

	CreatorVersion Version
	ReaderVersion  Version

	// Flags is the general purpose bit flag.
	Flags uint16
	// ExternalAttrs is the raw external attributes field, interpreted according to CreatorVersion.Host.
	ExternalAttrs uint32

	// HeaderOffset is the absolute offset of the local file header, including any prepended data.
	HeaderOffset uint64
}

const (
	flagEncrypted      = 0x1
	flagLZMAEOS        = 0x2
	flagDataDescriptor = 0x8
	flagUTF8           = 0x800
)

// IsUTF8 returns true if general purpose bit 11 is set.
func (e *Entry) IsUTF8() bool {
	return e.Flags&flagUTF8 != 0
}

// IsEncrypted returns true if general purpose bit 0 is set.
func (e *Entry) IsEncrypted() bool {
	return e.Flags&flagEncrypted != 0
}

// HasDataDescriptor returns true if sizes and CRC-32 follow the entry's data instead of its local header.
func (e *Entry) HasDataDescriptor() bool {
	return e.Flags&flagDataDescriptor != 0
}

// Mode derives the file mode from ExternalAttrs and Name.
//
// Unix and OS X creators store a Unix mode in the upper 16 bits; other hosts store MS-DOS attributes in the lower
// bits. A name ending in `/` is always a directory.
func (e *Entry) Mode() (mode fs.FileMode) {
	switch e.CreatorVersion.Host {
	case Unix, Osx:
		mode = unixModeToFileMode(e.ExternalAttrs >> 16)
	case MsDos, WindowsNtfs, Vfat:
		mode = msdosModeToFileMode(e.ExternalAttrs)
	}

	if strings.HasSuffix(e.Name, "/") {
		mode |= fs.ModeDir
	}

	if mode.Perm() == 0 {
		if mode.IsDir() {
			mode |= 0755
		} else {
			mode |= 0644
		}
	}

	return
}

// Contents classifies the entry.
//
// The classification is recomputed from ExternalAttrs on every call.
func (e *Entry) Contents() EntryContents {
	switch mode := e.Mode(); {
	case mode&fs.ModeSymlink != 0:
		return Symlink{Entry: e}
	case mode.IsDir():
		return Directory{Entry: e}
	default:
		return File{Entry: e}
	}
}

// Kind is the enum form of Contents.
func (e *Entry) Kind() ContentKind {
	return e.Contents().Kind()
}

// Reader returns a new EntryReader that reads the entry's data from src.
//
// Each call uses its own io.SectionReader so multiple entries from the same src can be read concurrently.
func (e *Entry) Reader(src io.ReaderAt, optFns ...func(*EntryReaderOptions)) *EntryReader {
	return NewEntryReader(e, func(offset uint64) io.Reader {
		return io.NewSectionReader(src, int64(offset), 1<<63-1-int64(offset))
	}, optFns...)
}

// ContentKind enumerates the EntryContents variants.
type ContentKind int

const (
	KindFile ContentKind = iota
	KindDirectory
	KindSymlink
)

func (k ContentKind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// EntryContents is one of File, Directory, or Symlink.
type EntryContents interface {
	Kind() ContentKind
}

// File is a regular file entry.
type File struct {
	Entry *Entry
}

// Directory is a directory entry.
type Directory struct {
	Entry *Entry
}

// Symlink is a symbolic link entry whose data is the link target.
type Symlink struct {
	Entry *Entry
}

func (File) Kind() ContentKind      { return KindFile }
func (Directory) Kind() ContentKind { return KindDirectory }
func (Symlink) Kind() ContentKind   { return KindSymlink }

const (
	// Unix constants. APPNOTE.TXT doesn't mention them, but these seem to be the values agreed on by tools.
	sIFMT   = 0xf000
	sIFSOCK = 0xc000
	sIFLNK  = 0xa000
	sIFREG  = 0x8000
	sIFBLK  = 0x6000
	sIFDIR  = 0x4000
	sIFCHR  = 0x2000
	sIFIFO  = 0x1000
	sISUID  = 0x800
	sISGID  = 0x400
	sISVTX  = 0x200

	msdosDir      = 0x10
	msdosReadOnly = 0x01
)

// unixModeToFileMode converts the Unix mode stored in the high 16 bits of the external attributes.
//
// taken from https://go.dev/src/archive/zip/struct.go.
func unixModeToFileMode(m uint32) fs.FileMode {
	mode := fs.FileMode(m & 0777)
	switch m & sIFMT {
	case sIFBLK:
		mode |= fs.ModeDevice
	case sIFCHR:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case sIFDIR:
		mode |= fs.ModeDir
	case sIFIFO:
		mode |= fs.ModeNamedPipe
	case sIFLNK:
		mode |= fs.ModeSymlink
	case sIFREG:
		// nothing to do
	case sIFSOCK:
		mode |= fs.ModeSocket
	}
	if m&sISGID != 0 {
		mode |= fs.ModeSetgid
	}
	if m&sISUID != 0 {
		mode |= fs.ModeSetuid
	}
	if m&sISVTX != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}

// msdosModeToFileMode converts the MS-DOS attributes stored in the low byte of the external attributes.
//
// taken from https://go.dev/src/archive/zip/struct.go.
func msdosModeToFileMode(m uint32) (mode fs.FileMode) {
	if m&msdosDir != 0 {
		mode = fs.ModeDir | 0777
	} else {
		mode = 0666
	}
	if m&msdosReadOnly != 0 {
		mode &^= 0222
	}
	return mode
}
