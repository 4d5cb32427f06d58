package z

import (
	"encoding/binary"
	"time"
)

const (
	extraZip64            = 0x0001
	extraNTFS             = 0x000a
	extraExtendedTime     = 0x5455
	extraInfoZIPUnixOld   = 0x5855
	extraInfoZIPUnixNew   = 0x7875
	ntfsAttributeTimes    = 0x0001
	ntfsAttributeTimesLen = 24
)

// extraFields holds the values of the recognized extra fields.
type extraFields struct {
	uncompressedSize *uint64
	compressedSize   *uint64
	headerOffset     *uint64
	diskNumber       *uint32

	modified, accessed, created *time.Time

	// ntfs is true if the timestamps came from the NTFS extra field which takes precedence.
	ntfs bool

	uid, gid *uint32
}

// zip64Needs lists which legacy fields hold the sentinel, in the order the Zip64 extra field stores them.
type zip64Needs struct {
	uncompressedSize, compressedSize, headerOffset, diskNumber bool
}

// parseExtraFields walks the tag/size framed extra field block.
//
// Unknown tags are skipped. A recognized tag whose data is malformed, or a block whose framing overruns, results in
// ErrInvalidExtraField.
func parseExtraFields(b []byte, needs zip64Needs) (extraFields, error) {
	return walkExtraFields(b, needs, false)
}

// parseLocalExtraFields is parseExtraFields for the local header's copy of the block.
//
// Aligners such as zipalign pad the local block with fewer than 4 trailing bytes that are not a field; the remainder
// is ignored the same way archive/zip does.
func parseLocalExtraFields(b []byte, needs zip64Needs) (extraFields, error) {
	return walkExtraFields(b, needs, true)
}

func walkExtraFields(b []byte, needs zip64Needs, padded bool) (f extraFields, err error) {
	for len(b) > 0 {
		if len(b) < 4 {
			if padded {
				break
			}

			return f, ErrInvalidExtraField
		}

		tag, size := binary.LittleEndian.Uint16(b), int(binary.LittleEndian.Uint16(b[2:]))
		if len(b) < 4+size {
			return f, ErrInvalidExtraField
		}

		data := b[4 : 4+size]
		b = b[4+size:]

		switch tag {
		case extraZip64:
			err = f.parseZip64(data, needs)
		case extraNTFS:
			err = f.parseNTFS(data)
		case extraExtendedTime:
			err = f.parseExtendedTime(data)
		case extraInfoZIPUnixNew:
			err = f.parseUnixNew(data)
		case extraInfoZIPUnixOld:
			err = f.parseUnixOld(data)
		}

		if err != nil {
			return f, err
		}
	}

	return f, nil
}

// parseZip64 only reads the values whose legacy field holds the sentinel.
func (f *extraFields) parseZip64(data []byte, needs zip64Needs) error {
	next := func() (uint64, bool) {
		if len(data) < 8 {
			return 0, false
		}

		v := binary.LittleEndian.Uint64(data)
		data = data[8:]
		return v, true
	}

	if needs.uncompressedSize {
		v, ok := next()
		if !ok {
			return ErrInvalidExtraField
		}
		f.uncompressedSize = &v
	}

	if needs.compressedSize {
		v, ok := next()
		if !ok {
			return ErrInvalidExtraField
		}
		f.compressedSize = &v
	}

	if needs.headerOffset {
		v, ok := next()
		if !ok {
			return ErrInvalidExtraField
		}
		f.headerOffset = &v
	}

	if needs.diskNumber {
		if len(data) < 4 {
			return ErrInvalidExtraField
		}
		v := binary.LittleEndian.Uint32(data)
		f.diskNumber = &v
	}

	return nil
}

func (f *extraFields) parseNTFS(data []byte) error {
	if len(data) < 4 {
		return ErrInvalidExtraField
	}

	// 4 reserved bytes, then tag/size framed attributes.
	for data = data[4:]; len(data) > 0; {
		if len(data) < 4 {
			return ErrInvalidExtraField
		}

		tag, size := binary.LittleEndian.Uint16(data), int(binary.LittleEndian.Uint16(data[2:]))
		if len(data) < 4+size {
			return ErrInvalidExtraField
		}

		attr := data[4 : 4+size]
		data = data[4+size:]

		if tag != ntfsAttributeTimes {
			continue
		}
		if size < ntfsAttributeTimesLen {
			return ErrInvalidExtraField
		}

		m := ntfsTimeToTime(binary.LittleEndian.Uint64(attr))
		a := ntfsTimeToTime(binary.LittleEndian.Uint64(attr[8:]))
		c := ntfsTimeToTime(binary.LittleEndian.Uint64(attr[16:]))
		f.modified, f.accessed, f.created, f.ntfs = &m, &a, &c, true
	}

	return nil
}

// parseExtendedTime decodes the "UT" field.
//
// The flags byte tells which timestamps the local header copy has, but the central directory copy usually only
// carries the modification time, so each value is only read if there are bytes left for it.
func (f *extraFields) parseExtendedTime(data []byte) error {
	if len(data) < 1 {
		return ErrInvalidExtraField
	}

	flags := data[0]
	data = data[1:]

	if flags&0x1 != 0 && len(data) < 4 {
		return ErrInvalidExtraField
	}

	var ts []*time.Time
	for bit := 0; bit < 3; bit++ {
		if flags&(1<<bit) == 0 || len(data) < 4 {
			ts = append(ts, nil)
			continue
		}

		t := time.Unix(int64(int32(binary.LittleEndian.Uint32(data))), 0).UTC()
		ts = append(ts, &t)
		data = data[4:]
	}

	if f.ntfs {
		return nil
	}

	if ts[0] != nil {
		f.modified = ts[0]
	}
	if ts[1] != nil {
		f.accessed = ts[1]
	}
	if ts[2] != nil {
		f.created = ts[2]
	}

	return nil
}

// parseUnixNew decodes the Info-ZIP "ux" field which stores variable-width uid and gid.
func (f *extraFields) parseUnixNew(data []byte) error {
	if len(data) < 1 {
		return ErrInvalidExtraField
	}

	// only version 1 is defined.
	if data[0] != 1 {
		return nil
	}
	data = data[1:]

	readID := func() (*uint32, error) {
		if len(data) < 1 {
			return nil, ErrInvalidExtraField
		}

		n := int(data[0])
		if n > 8 || len(data) < 1+n {
			return nil, ErrInvalidExtraField
		}

		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(data[1+i])
		}
		data = data[1+n:]

		if v > 0xffffffff {
			return nil, ErrInvalidExtraField
		}

		id := uint32(v)
		return &id, nil
	}

	uid, err := readID()
	if err != nil {
		return err
	}
	gid, err := readID()
	if err != nil {
		return err
	}

	f.uid, f.gid = uid, gid
	return nil
}

// parseUnixOld decodes the Info-ZIP "UX" field: atime, mtime, then optionally 16-bit uid and gid.
func (f *extraFields) parseUnixOld(data []byte) error {
	if len(data) < 8 {
		return ErrInvalidExtraField
	}

	if !f.ntfs {
		a := time.Unix(int64(int32(binary.LittleEndian.Uint32(data))), 0).UTC()
		m := time.Unix(int64(int32(binary.LittleEndian.Uint32(data[4:]))), 0).UTC()
		if f.accessed == nil {
			f.accessed = &a
		}
		if f.modified == nil {
			f.modified = &m
		}
	}

	if len(data) >= 12 && f.uid == nil {
		uid, gid := uint32(binary.LittleEndian.Uint16(data[8:])), uint32(binary.LittleEndian.Uint16(data[10:]))
		f.uid, f.gid = &uid, &gid
	}

	return nil
}

// msDosTimeToTime converts an MS-DOS date and time into a time.Time.
// The resolution is 2s.
// See: https://learn.microsoft.com/en-us/windows/win32/api/winbase/nf-winbase-dosdatetimetofiletime
//
// taken from https://go.dev/src/archive/zip/struct.go.
func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		// date bits 0-4: day of month; 5-8: month; 9-15: years since 1980
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		// time bits 0-4: second/2; 5-10: minute; 11-15: hour
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0, // nanoseconds

		time.UTC,
	)
}

// ntfsTimeToTime converts the number of 100ns intervals since 1601-01-01 UTC.
func ntfsTimeToTime(t uint64) time.Time {
	const ticksPerSecond = 1e7
	const secondsTo1970 = 11644473600

	secs := int64(t/ticksPerSecond) - secondsTo1970
	nsecs := int64(t%ticksPerSecond) * 100
	return time.Unix(secs, nsecs).UTC()
}
