package cmd

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	name string
	body string
	mode fs.FileMode
}

// writeZip creates an archive with only stored entries under a temporary directory and returns its path.
func writeZip(t *testing.T, comment string, files ...testFile) string {
	t.Helper()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	require.NoError(t, w.SetComment(comment))

	for _, f := range files {
		fh := &zip.FileHeader{Name: f.name, Method: zip.Store}
		fh.SetMode(f.mode)

		fw, err := w.CreateHeader(fh)
		require.NoErrorf(t, err, "CreateHeader(%s) error = %v", f.name, err)

		_, err = io.WriteString(fw, f.body)
		require.NoErrorf(t, err, "Write(%s) error = %v", f.name, err)
	}
	require.NoError(t, w.Close())

	name := filepath.Join(t.TempDir(), "test.zip")
	require.NoError(t, os.WriteFile(name, buf.Bytes(), 0644))
	return name
}

var testFiles = []testFile{
	{name: "dir/", mode: fs.ModeDir | 0755},
	{name: "dir/a.txt", body: "hello", mode: 0644},
	{name: "b.txt", body: "goodbye", mode: 0600},
	{name: "link", body: "b.txt", mode: fs.ModeSymlink | 0777},
}

func skipWithoutSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
}

func TestNewParser(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	for _, name := range []string{"info", "file", "ls", "list", "extract", "x", "unzip"} {
		require.NotNilf(t, p.Find(name), "Find(%s) returns nil", name)
	}
}

func TestNewParser_Config(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	name := writeZip(t, "", testFiles[1])
	_, err = p.ParseArgs([]string{"--config", filepath.Join(t.TempDir(), "does-not-exist"), "info", name})
	require.Error(t, err)
	require.False(t, flags.WroteHelp(err))
}
