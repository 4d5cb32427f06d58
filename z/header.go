package z

import (
	"bytes"
	"encoding/binary"
)

// fixedSizeCDFileHeader needs to be fixed size to work with binary.Read.
//
// https://en.wikipedia.org/wiki/ZIP_(file_format)#Central_directory_file_header_(CDFH)
type fixedSizeCDFileHeader struct {
	Signature         uint32
	CreatorVersion    uint16
	ReaderVersion     uint16
	Flags             uint16
	Method            uint16
	ModifiedTime      uint16
	ModifiedDate      uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	FileNameLength    uint16
	ExtraFieldLength  uint16
	FileCommentLength uint16
	DiskNumber        uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	Offset            uint32
}

// centralHeader is a central directory file header whose text has not been decoded yet.
type centralHeader struct {
	fixedSizeCDFileHeader
	name, extra, comment []byte
}

// centralHeaderSize returns the total size of the header starting at b[0], which must hold at least the fixed part.
func centralHeaderSize(b []byte) int {
	n := int(binary.LittleEndian.Uint16(b[28:]))
	m := int(binary.LittleEndian.Uint16(b[30:]))
	k := int(binary.LittleEndian.Uint16(b[32:]))
	return centralHeaderLen + n + m + k
}

// unmarshalCentralHeader decodes the header starting at b[0], which must hold the full header.
//
// The variable-size parts are copied so that the read buffer can be reused.
func unmarshalCentralHeader(b []byte) (h centralHeader, err error) {
	if err = binary.Read(bytes.NewReader(b[:centralHeaderLen]), binary.LittleEndian, &h.fixedSizeCDFileHeader); err != nil {
		return h, err
	}

	n, m, k := int(h.FileNameLength), int(h.ExtraFieldLength), int(h.FileCommentLength)
	b = b[centralHeaderLen:]
	h.name = bytes.Clone(b[:n])
	h.extra = bytes.Clone(b[n : n+m])
	h.comment = bytes.Clone(b[n+m : n+m+k])
	return h, nil
}

// toEntry resolves the header into an Entry.
//
// baseOffset is the size of data prepended to the archive, added to the local header offset.
func (h *centralHeader) toEntry(enc Encoding, baseOffset uint64) (e Entry, err error) {
	e = Entry{
		Method:           Method(h.Method),
		CRC32:            h.CRC32,
		CompressedSize:   uint64(h.CompressedSize),
		UncompressedSize: uint64(h.UncompressedSize),
		Modified:         msDosTimeToTime(h.ModifiedDate, h.ModifiedTime),
		CreatorVersion:   ParseVersion(h.CreatorVersion),
		ReaderVersion:    ParseVersion(h.ReaderVersion),
		Flags:            h.Flags,
		ExternalAttrs:    h.ExternalAttrs,
		HeaderOffset:     uint64(h.Offset),
	}

	f, err := parseExtraFields(h.extra, zip64Needs{
		uncompressedSize: h.UncompressedSize == sentinel32,
		compressedSize:   h.CompressedSize == sentinel32,
		headerOffset:     h.Offset == sentinel32,
		diskNumber:       h.DiskNumber == sentinel16,
	})
	if err != nil {
		return e, err
	}

	if f.uncompressedSize != nil {
		e.UncompressedSize = *f.uncompressedSize
	}
	if f.compressedSize != nil {
		e.CompressedSize = *f.compressedSize
	}
	if f.headerOffset != nil {
		e.HeaderOffset = *f.headerOffset
	}
	e.HeaderOffset += baseOffset

	if f.modified != nil {
		e.Modified = *f.modified
	}
	e.Accessed, e.Created = f.accessed, f.created
	e.UID, e.GID = f.uid, f.gid

	if e.IsUTF8() {
		enc = UTF8
	}
	if e.Name, err = enc.Decode(h.name); err != nil {
		return e, err
	}
	if e.Comment, err = enc.Decode(h.comment); err != nil {
		return e, err
	}

	return e, nil
}
