package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/zr/extract"
	"github.com/nguyengg/zr/internal"
	"github.com/nguyengg/zr/internal/config"
	"github.com/nguyengg/zr/util"
	"github.com/nguyengg/zr/z"
	"github.com/schollz/progressbar/v3"
)

type Extract struct {
	Dir             string `long:"dir" description:"the output directory; default to the [extract] dir setting or the current directory" value-name:"DIR"`
	Mkdir           bool   `short:"m" long:"mkdir" description:"extract each archive into a new directory named after the archive under the output directory"`
	Concurrency     int    `short:"j" long:"concurrency" description:"the number of files to extract at the same time"`
	NoOverwrite     bool   `long:"no-overwrite" description:"skip entries whose output path already exists"`
	SkipChecksum    bool   `long:"skip-checksum" description:"do not verify the CRC-32 of extracted files"`
	ContinueOnError bool   `short:"k" long:"keep-going" description:"skip entries that cannot be extracted instead of stopping"`
	Args            struct {
		Files []flags.Filename `positional-arg-name:"file" description:"the local .zip files to be extracted" required:"yes"`
	} `positional-args:"yes"`

	out    io.Writer
	stderr io.Writer
	logger *log.Logger
}

func (c *Extract) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	c.applyConfig(config.ForExtract())

	success := 0
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		c.logger = internal.NewLogger(i, n, string(file))
		if c.stderr != nil {
			c.logger.SetOutput(c.stderr)
		}

		c.logger.Printf("start extracting")

		output, err := c.extract(ctx, string(file))
		if err == nil {
			c.logger.Printf(`done extracting to "%s"`, output)
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			break
		}

		c.logger.Printf("extract error: %v", err)
	}

	log.Printf("successfully extracted %d/%d files", success, n)
	if success != n {
		return fmt.Errorf("failed to extract %d/%d files", n-success, n)
	}

	return nil
}

// applyConfig fills in the flags that were not given from the [extract] section.
func (c *Extract) applyConfig(cfg config.ExtractConfig) {
	if c.Dir == "" {
		c.Dir = cfg.Dir
	}
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Concurrency <= 0 {
		c.Concurrency = max(cfg.Concurrency, 1)
	}

	c.NoOverwrite = c.NoOverwrite || cfg.NoOverwrite
	c.SkipChecksum = c.SkipChecksum || cfg.SkipChecksum
}

// extract extracts the content of the named ZIP file and returns the directory it was extracted to.
func (c *Extract) extract(ctx context.Context, name string) (string, error) {
	rc, err := z.OpenReader(name, func(opts *z.Options) {
		opts.Ctx = ctx
	})
	if err != nil {
		return "", fmt.Errorf("read archive error: %w", err)
	}
	defer rc.Close()

	dir := c.Dir
	if c.Mkdir {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory error: %w", err)
		}

		stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		if dir, err = util.MkExclDir(dir, stem, 0755); err != nil {
			return "", err
		}
	}

	var total uint64
	for _, e := range rc.All() {
		if e.Kind() == z.KindFile {
			total += e.UncompressedSize
		}
	}

	var barOptions []progressbar.Option
	if c.stderr != nil {
		barOptions = append(barOptions, progressbar.OptionSetWriter(c.stderr))
	}
	bar := internal.NewBarReporter(total, util.DirBase(name), barOptions...)

	result, err := extract.Extract(ctx, rc.Archive, rc.ReaderAt(), dir, func(opts *extract.Options) {
		opts.Reporter = bar
		opts.Logger = c.logger
		opts.Concurrency = c.Concurrency
		opts.NoOverwrite = c.NoOverwrite
		opts.SkipChecksum = c.SkipChecksum
		opts.ContinueOnError = c.ContinueOnError
	})
	_ = bar.Close()
	if err != nil {
		return dir, err
	}

	w := c.out
	if w == nil {
		w = os.Stdout
	}

	_, _ = fmt.Fprintf(w, "Extracted %s (in %d files, %d dirs, %d symlinks)\n", humanize.IBytes(result.Bytes), result.Files, result.Dirs, result.Symlinks)
	if result.Skipped > 0 {
		_, _ = fmt.Fprintf(w, "Skipped %d entries\n", result.Skipped)
	}
	_, _ = fmt.Fprintf(w, "Overall extraction speed: %s/s\n", humanize.IBytes(uint64(result.Throughput())))

	return dir, nil
}
