package extract

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// PathStyle decides how entry names are sanitized before they are joined with the output directory.
type PathStyle int

const (
	// Posix strips leading `/` so that absolute names end up under the output directory.
	Posix PathStyle = iota
	// Windows rejects names with a drive separator or a leading separator.
	Windows
)

// DefaultPathStyle is the PathStyle of the running OS.
var DefaultPathStyle = func() PathStyle {
	if runtime.GOOS == "windows" {
		return Windows
	}

	return Posix
}()

func (s PathStyle) String() string {
	if s == Windows {
		return "windows"
	}

	return "posix"
}

// Sanitize returns the relative, `/`-separated path an entry should be written to.
//
// The boolean return value is false if the entry must not be extracted at all: names with a `..` segment (whether
// separated by `/` or `\`) are rejected rather than rewritten, and so are names that are empty after sanitization.
func (s PathStyle) Sanitize(name string) (string, bool) {
	if hasDotDot(name) {
		return "", false
	}

	switch s {
	case Windows:
		if strings.ContainsRune(name, ':') || strings.HasPrefix(name, `\`) || strings.HasPrefix(name, "/") {
			return "", false
		}

		name = strings.ReplaceAll(name, `\`, "/")
	default:
		name = strings.TrimLeft(name, "/")
	}

	if name == "" || path.Clean(name) == "." {
		return "", false
	}

	return name, true
}

// ValidateLinkTarget returns false if a symlink with the given target could point outside the output directory.
//
// Absolute targets and targets with a `..` segment are rejected.
func (s PathStyle) ValidateLinkTarget(target string) bool {
	if target == "" || hasDotDot(target) || strings.HasPrefix(target, "/") {
		return false
	}

	if s == Windows && (strings.HasPrefix(target, `\`) || strings.ContainsRune(target, ':')) {
		return false
	}

	return true
}

func hasDotDot(name string) bool {
	for _, seg := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}

	return false
}

// checkParents returns false if rel is not local or if any existing parent of rel under dir is a symlink.
//
// rel uses the OS separator. Archives can otherwise create a symlink in one entry and write through it in another.
func checkParents(dir, rel string) bool {
	if !filepath.IsLocal(rel) {
		return false
	}

	parent := dir
	elems := strings.Split(filepath.Dir(rel), string(os.PathSeparator))
	for _, elem := range elems {
		if elem == "." || elem == "" {
			continue
		}

		parent = filepath.Join(parent, elem)

		fi, err := os.Lstat(parent)
		switch {
		case os.IsNotExist(err):
			return true
		case err != nil:
			return false
		case fi.Mode()&os.ModeSymlink != 0:
			return false
		}
	}

	return true
}
