package util

import (
	"strings"
	"unicode/utf8"
)

// TruncateRightWithSuffix keeps the first len number of runes of text and only append the suffix if truncation happens.
func TruncateRightWithSuffix(text string, len int, suffix string) string {
	if len <= 0 {
		return suffix
	}

	i := 0
	for j := range text {
		if i == len {
			return text[:j] + suffix
		}
		i++
	}

	return text
}

// TruncatePath shortens a `/` separated path to fewer than limit runes.
//
// Leading components are abbreviated to their first rune one at a time, left to right, until the path fits:
//
//	TruncatePath("src/github.com/nguyengg/zr/z/reader.go", 30) == "s/g/nguyengg/zr/z/reader.go"
//
// If the path is still too long once every component has been abbreviated, it is cut to limit-3 runes and "..." is
// appended.
func TruncatePath(name string, limit int) string {
	rest := strings.Split(name, "/")
	done := make([]string, 0, len(rest))

	for {
		n := len(done) + len(rest) - 1
		for _, s := range done {
			n += utf8.RuneCountInString(s)
		}
		for _, s := range rest {
			n += utf8.RuneCountInString(s)
		}

		if n < limit {
			return strings.Join(append(done, rest...), "/")
		}

		if len(rest) == 0 {
			rs := []rune(strings.Join(done, "/"))
			return string(rs[:max(0, min(len(rs), limit-3))]) + "..."
		}

		token := rest[0]
		rest = rest[1:]
		if _, size := utf8.DecodeRuneInString(token); size > 0 {
			token = token[:size]
		}
		done = append(done, token)
	}
}
