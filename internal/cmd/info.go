package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/zr/z"
)

type Info struct {
	Args struct {
		File flags.Filename `positional-arg-name:"file" description:"the local .zip file to inspect" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *Info) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	rc, err := z.OpenReader(string(c.Args.File))
	if err != nil {
		return fmt.Errorf(`read archive "%s" error: %w`, c.Args.File, err)
	}
	defer rc.Close()

	c.print(rc.Archive)
	return nil
}

func (c *Info) print(archive *z.Archive) {
	w := c.out
	if w == nil {
		w = os.Stdout
	}

	if comment, ok := archive.Comment(); ok {
		_, _ = fmt.Fprintf(w, "Comment:\n%s\n", comment)
	}

	var (
		creators, readers, methods       []string
		compressedSize, uncompressedSize uint64
		numFiles, numDirs, numSymlinks   int
		numEncrypted, numDescriptors     int
	)

	for _, e := range archive.All() {
		creators = appendUnique(creators, e.CreatorVersion.String())
		readers = appendUnique(readers, e.ReaderVersion.String())

		if e.IsEncrypted() {
			numEncrypted++
		}
		if e.HasDataDescriptor() {
			numDescriptors++
		}

		switch e.Kind() {
		case z.KindDirectory:
			numDirs++
		case z.KindSymlink:
			numSymlinks++
		default:
			methods = appendUnique(methods, e.Method.String())
			numFiles++
			compressedSize += e.CompressedSize
			uncompressedSize += e.UncompressedSize
		}
	}

	slices.Sort(creators)
	slices.Sort(readers)
	slices.Sort(methods)

	_, _ = fmt.Fprintf(w, "Version made by: [%s], required: [%s]\n", strings.Join(creators, ", "), strings.Join(readers, ", "))
	_, _ = fmt.Fprintf(w, "Encoding: %s, Methods: [%s]\n", archive.Encoding(), strings.Join(methods, ", "))

	ratio := 0.0
	if uncompressedSize != 0 {
		ratio = float64(compressedSize) / float64(uncompressedSize) * 100.0
	}

	_, _ = fmt.Fprintf(w, "%s (%.2f%% compression) (%d files, %d dirs, %d symlinks)\n",
		humanize.IBytes(uncompressedSize), ratio, numFiles, numDirs, numSymlinks)

	if numEncrypted != 0 || numDescriptors != 0 {
		_, _ = fmt.Fprintf(w, "%d encrypted, %d with data descriptor\n", numEncrypted, numDescriptors)
	}
}

func appendUnique(s []string, v string) []string {
	if slices.Contains(s, v) {
		return s
	}

	return append(s, v)
}
