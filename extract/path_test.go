package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathStyle_Sanitize(t *testing.T) {
	tests := []struct {
		style  PathStyle
		name   string
		want   string
		wantOK bool
	}{
		{style: Posix, name: "a/b.txt", want: "a/b.txt", wantOK: true},
		{style: Posix, name: "dir/", want: "dir/", wantOK: true},
		{style: Posix, name: "/etc/passwd", want: "etc/passwd", wantOK: true},
		{style: Posix, name: "///etc/passwd", want: "etc/passwd", wantOK: true},
		{style: Posix, name: "../../etc/passwd"},
		{style: Posix, name: "a/../../b"},
		{style: Posix, name: "a/.."},
		{style: Posix, name: `a\..\b`},
		{style: Posix, name: "a/..b/c", want: "a/..b/c", wantOK: true},
		{style: Posix, name: "/"},
		{style: Posix, name: ""},
		{style: Posix, name: "./"},
		{style: Windows, name: `a\b.txt`, want: "a/b.txt", wantOK: true},
		{style: Windows, name: "a/b.txt", want: "a/b.txt", wantOK: true},
		{style: Windows, name: `C:\Windows\System32`},
		{style: Windows, name: "c:relative"},
		{style: Windows, name: `\server\share`},
		{style: Windows, name: "/etc/passwd"},
		{style: Windows, name: `..\secret`},
	}
	for _, tt := range tests {
		t.Run(tt.style.String()+" "+tt.name, func(t *testing.T) {
			got, ok := tt.style.Sanitize(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathStyle_ValidateLinkTarget(t *testing.T) {
	tests := []struct {
		style  PathStyle
		target string
		want   bool
	}{
		{style: Posix, target: "b.txt", want: true},
		{style: Posix, target: "sub/dir/b.txt", want: true},
		{style: Posix, target: "./b.txt", want: true},
		{style: Posix, target: "../secret"},
		{style: Posix, target: "sub/../../secret"},
		{style: Posix, target: "/etc/passwd"},
		{style: Posix, target: ""},
		{style: Windows, target: `sub\b.txt`, want: true},
		{style: Windows, target: `C:\Windows`},
		{style: Windows, target: `\\server\share`},
		{style: Windows, target: `..\secret`},
	}
	for _, tt := range tests {
		t.Run(tt.style.String()+" "+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.ValidateLinkTarget(tt.target))
		})
	}
}
