package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"
)

// Name is the name of the configuration file that Load looks for.
const Name = ".zr"

// Loader can be used for loading .zr configuration.
type Loader struct {
	cfg *ini.File
}

// NewLoader returns a Loader with empty configuration.
func NewLoader() *Loader {
	return &Loader{cfg: ini.Empty()}
}

// Load will traverse the directory hierarchy upwards to find the first ".zr" file available and load its contents
// into the Loader.
//
// The name of the .zr file is returned, or an empty string if none was found.
func (l *Loader) Load(ctx context.Context) (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		path := filepath.Join(cur, Name)
		switch fi, err := os.Stat(path); {
		case err == nil && !fi.IsDir():
			return path, l.LoadFile(path)
		case err != nil && !os.IsNotExist(err):
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", nil
		}

		cur = parent
	}
}

// LoadFile loads the given file into the Loader.
//
// Unlike Load, the file must exist.
func (l *Loader) LoadFile(path string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		l.cfg = ini.Empty()
		return fmt.Errorf(`load config "%s" error: %w`, path, err)
	}

	l.cfg = cfg
	return nil
}

// DefaultLoader is the default Loader instance for package-level methods.
var DefaultLoader = NewLoader()

// Load calls Loader.Load on the DefaultLoader instance.
func Load(ctx context.Context) (string, error) {
	return DefaultLoader.Load(ctx)
}

// LoadFile calls Loader.LoadFile on the DefaultLoader instance.
func LoadFile(path string) error {
	return DefaultLoader.LoadFile(path)
}
