package z

import "strconv"

// Method is the compression method identifier of an entry.
//
// Unknown values are representable. Whether a method can actually be read is decided by the decompressor registry,
// and only when the entry is opened for read.
//
// See https://pkware.cachefly.net/webdocs/casestudies/APPNOTE.TXT section 4.4.5.
type Method uint16

const (
	Store     Method = 0
	Shrink    Method = 1
	Reduce1   Method = 2
	Reduce2   Method = 3
	Reduce3   Method = 4
	Reduce4   Method = 5
	Implode   Method = 6
	Deflate   Method = 8
	Deflate64 Method = 9
	PKImplode Method = 10
	BZip2     Method = 12
	LZMA      Method = 14
	IBMTerse  Method = 18
	LZ77      Method = 19
	Zstd      Method = 93
	MP3       Method = 94
	XZ        Method = 95
	JPEG      Method = 96
	WavPack   Method = 97
	PPMd      Method = 98
	AES       Method = 99
)

var methodNames = map[Method]string{
	Store:     "Store",
	Shrink:    "Shrink",
	Reduce1:   "Reduce1",
	Reduce2:   "Reduce2",
	Reduce3:   "Reduce3",
	Reduce4:   "Reduce4",
	Implode:   "Implode",
	Deflate:   "Deflate",
	Deflate64: "Deflate64",
	PKImplode: "PKImplode",
	BZip2:     "BZip2",
	LZMA:      "LZMA",
	IBMTerse:  "IBMTerse",
	LZ77:      "LZ77",
	Zstd:      "Zstd",
	MP3:       "MP3",
	XZ:        "XZ",
	JPEG:      "JPEG",
	WavPack:   "WavPack",
	PPMd:      "PPMd",
	AES:       "AES",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}

	return "Unsupported(" + strconv.Itoa(int(m)) + ")"
}
