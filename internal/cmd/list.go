package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/zr/util"
	"github.com/nguyengg/zr/z"
	"github.com/valyala/bytebufferpool"
)

// maxNameLen is the width of the name column.
const maxNameLen = 55

type List struct {
	Verbose bool `short:"v" long:"verbose" description:"also print modified time, uid, gid, and symlink targets"`
	Args    struct {
		File flags.Filename `positional-arg-name:"file" description:"the local .zip file to list" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	rc, err := z.OpenReader(string(c.Args.File))
	if err != nil {
		return fmt.Errorf(`read archive "%s" error: %w`, c.Args.File, err)
	}
	defer rc.Close()

	w := c.out
	if w == nil {
		w = os.Stdout
	}

	for _, e := range rc.All() {
		_, _ = fmt.Fprintf(w, "%9s %12s %s", e.Mode(), humanize.IBytes(e.UncompressedSize), util.TruncatePath(e.Name, maxNameLen))

		if c.Verbose {
			_, _ = fmt.Fprintf(w, " %s %s %s", e.Modified.Format(time.RFC3339), optional(e.UID), optional(e.GID))

			if e.Kind() == z.KindSymlink {
				target, err := readLinkTarget(rc.Open(e))
				if err != nil {
					return fmt.Errorf(`read symlink target of "%s" error: %w`, e.Name, err)
				}

				_, _ = fmt.Fprintf(w, "\t%s", target)
			}
		}

		_, _ = fmt.Fprintln(w)
	}

	return nil
}

func optional(v *uint32) string {
	if v == nil {
		return "∅"
	}

	return strconv.FormatUint(uint64(*v), 10)
}

func readLinkTarget(r *z.EntryReader) (string, error) {
	defer r.Close()

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	if _, err := bb.ReadFrom(io.LimitReader(r, 4*1024)); err != nil {
		return "", err
	}

	return bb.String(), nil
}
