package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/nguyengg/zr/z"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	name string
	body string
	mode fs.FileMode
}

func createZip(t *testing.T, files ...testFile) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for _, f := range files {
		fh := &zip.FileHeader{Name: f.name, Method: zip.Deflate}
		if f.mode != 0 {
			fh.SetMode(f.mode)
		}

		fw, err := w.CreateHeader(fh)
		require.NoErrorf(t, err, "CreateHeader(%s) error = %v", f.name, err)

		_, err = io.WriteString(fw, f.body)
		require.NoErrorf(t, err, "Write(%s) error = %v", f.name, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func readZip(t *testing.T, b []byte) (*z.Archive, io.ReaderAt) {
	t.Helper()

	src := bytes.NewReader(b)
	archive, err := z.ReadZipFrom(src)
	require.NoErrorf(t, err, "ReadZipFrom() error = %v", err)
	return archive, src
}

func skipWithoutSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
}

func TestExtract(t *testing.T) {
	skipWithoutSymlinks(t)

	archive, src := readZip(t, createZip(t,
		testFile{name: "dir/", mode: fs.ModeDir | 0755},
		testFile{name: "dir/a.txt", body: "hello", mode: 0644},
		testFile{name: "b.txt", body: "goodbye", mode: 0600},
		testFile{name: "link", body: "b.txt", mode: fs.ModeSymlink | 0777},
	))

	var (
		mu          sync.Mutex
		done, total uint64
		names       []string
	)

	dir := t.TempDir()
	res, err := Extract(context.Background(), archive, src, dir, func(opts *Options) {
		opts.Reporter = ReporterFunc(func(d, tt uint64, name string) {
			mu.Lock()
			defer mu.Unlock()
			done, total, names = d, tt, append(names, name)
		})
	})
	require.NoErrorf(t, err, "Extract() error = %v", err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 1, res.Dirs)
	assert.Equal(t, 1, res.Symlinks)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, uint64(12), res.Bytes)

	// symlinks and directories don't count toward progress.
	assert.Equal(t, uint64(12), total)
	assert.Equal(t, uint64(12), done)
	assert.Contains(t, names, "dir/a.txt")
	assert.NotContains(t, names, "link")

	data, err := os.ReadFile(filepath.Join(dir, "dir", "a.txt"))
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	fi, err := os.Stat(filepath.Join(dir, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0600), fi.Mode().Perm())

	target, err := os.Readlink(filepath.Join(dir, "link"))
	assert.NoError(t, err)
	assert.Equal(t, "b.txt", target)

	data, err = os.ReadFile(filepath.Join(dir, "link"))
	assert.NoError(t, err)
	assert.Equal(t, "goodbye", string(data))
}

func TestExtract_ZipSlip(t *testing.T) {
	archive, src := readZip(t, createZip(t,
		testFile{name: "../../etc/passwd", body: "root:x:0:0"},
		testFile{name: "a/../../b", body: "escaped"},
		testFile{name: "/abs/file.txt", body: "absolute"},
		testFile{name: "good.txt", body: "good"},
	))

	root := t.TempDir()
	dir := filepath.Join(root, "nested", "out")

	res, err := Extract(context.Background(), archive, src, dir, func(opts *Options) {
		opts.PathStyle = Posix
	})
	require.NoErrorf(t, err, "Extract() error = %v", err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 2, res.Skipped)

	assert.NoFileExists(t, filepath.Join(root, "etc", "passwd"))
	assert.NoFileExists(t, filepath.Join(root, "nested", "b"))
	assert.NoFileExists(t, filepath.Join(dir, "b"))
	assert.FileExists(t, filepath.Join(dir, "abs", "file.txt"))
	assert.FileExists(t, filepath.Join(dir, "good.txt"))
}

func TestExtract_UnsafeSymlink(t *testing.T) {
	skipWithoutSymlinks(t)

	archive, src := readZip(t, createZip(t,
		testFile{name: "escape", body: "../secret", mode: fs.ModeSymlink | 0777},
		testFile{name: "absolute", body: "/etc/passwd", mode: fs.ModeSymlink | 0777},
		testFile{name: "fine", body: "sub/file.txt", mode: fs.ModeSymlink | 0777},
	))

	dir := t.TempDir()
	res, err := Extract(context.Background(), archive, src, dir)
	require.NoErrorf(t, err, "Extract() error = %v", err)

	assert.Equal(t, 1, res.Symlinks)
	assert.Equal(t, 2, res.Skipped)

	_, err = os.Lstat(filepath.Join(dir, "escape"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = os.Lstat(filepath.Join(dir, "absolute"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	target, err := os.Readlink(filepath.Join(dir, "fine"))
	assert.NoError(t, err)
	assert.Equal(t, "sub/file.txt", target)
}

func TestExtract_SymlinkInParent(t *testing.T) {
	skipWithoutSymlinks(t)

	archive, src := readZip(t, createZip(t,
		testFile{name: "sub/", mode: fs.ModeDir | 0755},
		testFile{name: "evil", body: "sub", mode: fs.ModeSymlink | 0777},
		testFile{name: "evil/file.txt", body: "written through a symlink"},
	))

	dir := t.TempDir()
	res, err := Extract(context.Background(), archive, src, dir)
	require.NoErrorf(t, err, "Extract() error = %v", err)

	assert.Equal(t, 1, res.Symlinks)
	assert.Equal(t, 1, res.Skipped)
	assert.NoFileExists(t, filepath.Join(dir, "sub", "file.txt"))
}

func TestExtract_SymlinksNotSupported(t *testing.T) {
	archive, src := readZip(t, createZip(t,
		testFile{name: "link", body: "target.txt", mode: fs.ModeSymlink | 0777},
	))

	dir := t.TempDir()
	res, err := Extract(context.Background(), archive, src, dir, func(opts *Options) {
		opts.SymlinksSupported = false
	})
	require.NoErrorf(t, err, "Extract() error = %v", err)
	assert.Equal(t, 1, res.Symlinks)

	fi, err := os.Lstat(filepath.Join(dir, "link"))
	require.NoError(t, err)
	assert.True(t, fi.Mode().IsRegular())

	data, err := os.ReadFile(filepath.Join(dir, "link"))
	assert.NoError(t, err)
	assert.Equal(t, "target.txt", string(data))
}

func TestExtract_NoOverwrite(t *testing.T) {
	archive, src := readZip(t, createZip(t,
		testFile{name: "a.txt", body: "new"},
		testFile{name: "b.txt", body: "new"},
	))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("old"), 0644))

	res, err := Extract(context.Background(), archive, src, dir, func(opts *Options) {
		opts.NoOverwrite = true
	})
	require.NoErrorf(t, err, "Extract() error = %v", err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Skipped)

	data, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	assert.Equal(t, "old", string(data))
	data, _ = os.ReadFile(filepath.Join(dir, "b.txt"))
	assert.Equal(t, "new", string(data))

	// without NoOverwrite, the file is replaced.
	res, err = Extract(context.Background(), archive, src, dir)
	require.NoErrorf(t, err, "Extract() error = %v", err)
	assert.Equal(t, 2, res.Files)

	data, _ = os.ReadFile(filepath.Join(dir, "a.txt"))
	assert.Equal(t, "new", string(data))
}

func TestExtract_ReplacesExistingSymlink(t *testing.T) {
	skipWithoutSymlinks(t)

	archive, src := readZip(t, createZip(t, testFile{name: "a.txt", body: "from archive"}))

	root := t.TempDir()
	outside := filepath.Join(root, "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("untouched"), 0644))

	dir := filepath.Join(root, "out")
	require.NoError(t, os.Mkdir(dir, 0755))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "a.txt")))

	_, err := Extract(context.Background(), archive, src, dir)
	require.NoErrorf(t, err, "Extract() error = %v", err)

	data, _ := os.ReadFile(outside)
	assert.Equal(t, "untouched", string(data))

	fi, err := os.Lstat(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.True(t, fi.Mode().IsRegular())
}

func TestExtract_Concurrency(t *testing.T) {
	var files []testFile
	var size uint64
	for i := range 20 {
		body := strings.Repeat(fmt.Sprintf("file %d. ", i), 1000*(i+1))
		files = append(files, testFile{name: fmt.Sprintf("dir-%d/file-%d.txt", i%3, i), body: body})
		size += uint64(len(body))
	}

	archive, src := readZip(t, createZip(t, files...))

	var (
		mu   sync.Mutex
		last uint64
	)

	dir := t.TempDir()
	res, err := Extract(context.Background(), archive, src, dir, func(opts *Options) {
		opts.Concurrency = 4
		opts.BufferSize = 1024
		opts.Reporter = ReporterFunc(func(done, total uint64, _ string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, size, total)
			last = max(last, done)
		})
	})
	require.NoErrorf(t, err, "Extract() error = %v", err)
	assert.Equal(t, 20, res.Files)
	assert.Equal(t, size, res.Bytes)
	assert.Equal(t, size, last)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.name)))
		assert.NoErrorf(t, err, "ReadFile(%s) error = %v", f.name, err)
		assert.Equal(t, f.body, string(data))
	}
}

func TestExtract_ConcurrencyDuplicateNames(t *testing.T) {
	skipWithoutSymlinks(t)

	var files []testFile
	for i := range 10 {
		files = append(files, testFile{name: "same.txt", body: strings.Repeat(fmt.Sprintf("%d", i), 64*1024)})
	}
	files = append(files,
		testFile{name: "other.txt", body: "other"},
		testFile{name: "link", body: strings.Repeat("x", 64*1024)},
		testFile{name: "link", body: "other.txt", mode: fs.ModeSymlink | 0777},
	)

	archive, src := readZip(t, createZip(t, files...))

	for range 5 {
		dir := t.TempDir()
		res, err := Extract(context.Background(), archive, src, dir, func(opts *Options) {
			opts.Concurrency = 8
			opts.BufferSize = 512
		})
		require.NoErrorf(t, err, "Extract() error = %v", err)
		assert.Equal(t, 12, res.Files)
		assert.Equal(t, 1, res.Symlinks)

		data, err := os.ReadFile(filepath.Join(dir, "same.txt"))
		require.NoError(t, err)
		assert.Equal(t, files[9].body, string(data))

		target, err := os.Readlink(filepath.Join(dir, "link"))
		require.NoError(t, err)
		assert.Equal(t, "other.txt", target)
	}
}

func TestExtract_OverwritesReadOnly(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("read-only files cannot be removed on windows")
	}

	archive, src := readZip(t, createZip(t, testFile{name: "a.txt", body: "hello", mode: 0444}))

	dir := t.TempDir()
	for range 2 {
		res, err := Extract(context.Background(), archive, src, dir)
		require.NoErrorf(t, err, "Extract() error = %v", err)
		assert.Equal(t, 1, res.Files)
	}

	fi, err := os.Stat(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0444), fi.Mode().Perm())
}

func TestOverlaps(t *testing.T) {
	sep := string(filepath.Separator)
	assert.True(t, overlaps("a", "a"))
	assert.True(t, overlaps("a", "a"+sep+"b"))
	assert.True(t, overlaps("a"+sep+"b", "a"))
	assert.False(t, overlaps("a", "ab"))
	assert.False(t, overlaps("a"+sep+"b", "a"+sep+"c"))
}

func TestExtract_Checksum(t *testing.T) {
	b := createZip(t, testFile{name: "a.txt", body: "hello"}, testFile{name: "b.txt", body: "world"})

	// corrupt the CRC-32 of the first central directory record.
	i := bytes.Index(b, []byte("PK\x01\x02"))
	require.Greater(t, i, 0)
	binary.LittleEndian.PutUint32(b[i+16:], 0xdeadbeef)

	archive, src := readZip(t, b)

	_, err := Extract(context.Background(), archive, src, t.TempDir())
	assert.ErrorIs(t, err, z.ErrChecksum)

	res, err := Extract(context.Background(), archive, src, t.TempDir(), func(opts *Options) {
		opts.ContinueOnError = true
	})
	assert.NoErrorf(t, err, "Extract() error = %v", err)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Skipped)

	res, err = Extract(context.Background(), archive, src, t.TempDir(), func(opts *Options) {
		opts.SkipChecksum = true
	})
	assert.NoErrorf(t, err, "Extract() error = %v", err)
	assert.Equal(t, 2, res.Files)
}

func TestExtract_Cancelled(t *testing.T) {
	archive, src := readZip(t, createZip(t, testFile{name: "a.txt", body: "hello"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Extract(ctx, archive, src, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Files)
}

func TestResult_Throughput(t *testing.T) {
	assert.Equal(t, 0.0, Result{Bytes: 100}.Throughput())
	assert.Equal(t, 50.0, Result{Bytes: 100, Elapsed: 2e9}.Throughput())
}
