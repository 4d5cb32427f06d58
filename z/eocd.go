package z

import (
	"bytes"
	"encoding/binary"
)

const (
	sigEOCD          = 0x06054b50
	sigZip64Locator  = 0x07064b50
	sigZip64EOCD     = 0x06064b50
	sigCentralHeader = 0x02014b50
	sigLocalHeader   = 0x04034b50

	eocdLen          = 22
	zip64LocatorLen  = 20
	zip64EOCDLen     = 56
	centralHeaderLen = 46
	localHeaderLen   = 30

	maxCommentLen = 0xffff

	sentinel16 = 0xffff
	sentinel32 = 0xffffffff
)

// eocdRecord models the end of central directory record of a ZIP file.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#End_of_central_directory_record_(EOCD).
type eocdRecord struct {
	// DiskNumber is number of this disk (or 0xffff for ZIP64).
	DiskNumber uint16
	// CDDiskOffset is disk where central directory starts (or 0xffff for ZIP64).
	CDDiskOffset uint16
	// CDCountOnDisk is the number of central directory records on this disk (or 0xffff for ZIP64).
	CDCountOnDisk uint16
	// CDCount is the total number of central directory records (or 0xffff for ZIP64).
	CDCount uint16
	// CDSize is size of central directory (bytes) (or 0xffffffff for ZIP64).
	CDSize uint32
	// CDOffset is offset of start of central directory, relative to start of archive (or 0xffffffff for ZIP64).
	CDOffset uint32
	// Comment is the raw, undecoded comment section of the EOCD.
	Comment []byte
}

// findEOCD searches b backwards for the EOCD signature.
//
// A candidate is only accepted if its comment fits within b. Returns -1 if there is no such candidate.
func findEOCD(b []byte) int {
	for i := len(b) - eocdLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(b[i:]) != sigEOCD {
			continue
		}

		if n := int(binary.LittleEndian.Uint16(b[i+20:])); i+eocdLen+n <= len(b) {
			return i
		}
	}

	return -1
}

// unmarshalEOCDRecord decodes the EOCD record starting at b[0], including its variable-size comment.
//
// Caller must have validated with findEOCD that b holds the full record.
func unmarshalEOCDRecord(b []byte) (r eocdRecord, err error) {
	data := &struct {
		Signature     uint32
		DiskNumber    uint16
		CDDiskOffset  uint16
		CDCountOnDisk uint16
		CDCount       uint16
		CDSize        uint32
		CDOffset      uint32
		CommentLength uint16
	}{}

	if err = binary.Read(bytes.NewReader(b[:eocdLen]), binary.LittleEndian, data); err != nil {
		return r, err
	}

	r = eocdRecord{
		DiskNumber:    data.DiskNumber,
		CDDiskOffset:  data.CDDiskOffset,
		CDCountOnDisk: data.CDCountOnDisk,
		CDCount:       data.CDCount,
		CDSize:        data.CDSize,
		CDOffset:      data.CDOffset,
	}

	if n := int(data.CommentLength); n > 0 {
		r.Comment = bytes.Clone(b[eocdLen : eocdLen+n])
	}

	return r, nil
}

// zip64Locator models the Zip64 end of central directory locator which immediately precedes the EOCD.
type zip64Locator struct {
	Signature    uint32
	DiskNumber   uint32
	EOCD64Offset uint64
	TotalDisks   uint32
}

// unmarshalZip64Locator returns false if b does not start with the locator signature.
func unmarshalZip64Locator(b []byte) (l zip64Locator, ok bool) {
	if len(b) < zip64LocatorLen || binary.LittleEndian.Uint32(b) != sigZip64Locator {
		return l, false
	}

	if err := binary.Read(bytes.NewReader(b[:zip64LocatorLen]), binary.LittleEndian, &l); err != nil {
		return l, false
	}

	return l, true
}

// zip64EOCDRecord models the fixed-size part of the Zip64 end of central directory record.
//
// The extensible data sector that may follow is ignored.
type zip64EOCDRecord struct {
	Signature      uint32
	RecordSize     uint64
	CreatorVersion uint16
	ReaderVersion  uint16
	DiskNumber     uint32
	CDDiskOffset   uint32
	CDCountOnDisk  uint64
	CDCount        uint64
	CDSize         uint64
	CDOffset       uint64
}

func unmarshalZip64EOCDRecord(b []byte) (r zip64EOCDRecord, err error) {
	if len(b) < zip64EOCDLen {
		return r, ErrDirectory64EndRecordInvalid
	}

	if err = binary.Read(bytes.NewReader(b[:zip64EOCDLen]), binary.LittleEndian, &r); err != nil {
		return r, ErrDirectory64EndRecordInvalid
	}

	// RecordSize excludes the leading 12 bytes.
	if r.Signature != sigZip64EOCD || r.RecordSize < zip64EOCDLen-12 {
		return r, ErrDirectory64EndRecordInvalid
	}

	return r, nil
}

// directoryEnd is the resolved location and size of the central directory.
type directoryEnd struct {
	// recordsCount is the resolved number of records.
	recordsCount uint64
	// offset is the resolved offset of the central directory, not including any prepended data.
	offset uint64
	// size is the resolved size of the central directory.
	size uint64
	// endOffset is the absolute offset of the EOCD record, or the Zip64 EOCD record if there is one.
	endOffset uint64
	// comment is the raw archive comment.
	comment []byte
}

// resolveDirectoryEnd applies Zip64 values wherever the legacy EOCD holds the sentinel.
func resolveDirectoryEnd(r eocdRecord, eocdOffset uint64, z64 *zip64EOCDRecord, z64Offset uint64) directoryEnd {
	d := directoryEnd{
		recordsCount: uint64(r.CDCount),
		offset:       uint64(r.CDOffset),
		size:         uint64(r.CDSize),
		endOffset:    eocdOffset,
		comment:      r.Comment,
	}

	if z64 == nil {
		return d
	}

	d.endOffset = z64Offset
	if r.CDCount == sentinel16 {
		d.recordsCount = z64.CDCount
	}
	if r.CDOffset == sentinel32 {
		d.offset = z64.CDOffset
	}
	if r.CDSize == sentinel32 {
		d.size = z64.CDSize
	}

	return d
}
