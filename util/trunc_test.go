package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRightWithSuffix(t *testing.T) {
	tests := []struct {
		text   string
		len    int
		suffix string
		want   string
	}{
		{text: "hello", len: 10, suffix: "...", want: "hello"},
		{text: "hello", len: 5, suffix: "...", want: "hello"},
		{text: "hello, world", len: 5, suffix: "...", want: "hello..."},
		{text: "日本語のファイル", len: 3, suffix: "…", want: "日本語…"},
		{text: "hello", len: 0, suffix: "...", want: "..."},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateRightWithSuffix(tt.text, tt.len, tt.suffix))
		})
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  string
	}{
		{name: "short.txt", limit: 55, want: "short.txt"},
		{name: "src/github.com/nguyengg/zr/z/reader.go", limit: 30, want: "s/g/nguyengg/zr/z/reader.go"},
		{name: "src/github.com/nguyengg/zr/z/reader.go", limit: 20, want: "s/g/n/z/z/reader.go"},
		{name: "répertoire/über/datei.txt", limit: 15, want: "r/ü/datei.txt"},
		// every component abbreviated and still too long.
		{name: "a/b/c/d/e/f/g/h", limit: 10, want: "a/b/c/d..."},
		// a single component is abbreviated like any other.
		{name: "a-very-long-file-name.txt", limit: 10, want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncatePath(tt.name, tt.limit))
		})
	}
}
