package z

import (
	"iter"
	"slices"
)

// Archive is the parsed, immutable catalog of a ZIP file.
//
// Archive is safe for concurrent use since nothing about it can be modified after ArchiveReader has produced it.
type Archive struct {
	size       uint64
	comment    string
	hasComment bool
	encoding   Encoding
	entries    []Entry
}

// Size returns the size of the archive as given to ArchiveReader.
func (a *Archive) Size() uint64 {
	return a.size
}

// Comment returns the archive comment, with false if the archive has none.
func (a *Archive) Comment() (string, bool) {
	return a.comment, a.hasComment
}

// Encoding returns the encoding detected for (or forced upon) records without the UTF-8 flag.
func (a *Archive) Encoding() Encoding {
	return a.encoding
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Entries returns a copy of the entries in central directory order.
func (a *Archive) Entries() []Entry {
	return slices.Clone(a.entries)
}

// All returns an iterator over pointers to the entries in central directory order.
//
// The pointers are shared with the Archive; callers must not modify the entries.
func (a *Archive) All() iter.Seq2[int, *Entry] {
	return func(yield func(int, *Entry) bool) {
		for i := range a.entries {
			if !yield(i, &a.entries[i]) {
				return
			}
		}
	}
}

// ByName returns the first entry with the given name.
func (a *Archive) ByName(name string) (*Entry, bool) {
	for i := range a.entries {
		if a.entries[i].Name == name {
			return &a.entries[i], true
		}
	}

	return nil, false
}
