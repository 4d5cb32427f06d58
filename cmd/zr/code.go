package main

import (
	"github.com/jessevdk/go-flags"
)

// exitCode returns 1 for any error other than the one returned after printing help.
func exitCode(err error) int {
	if err == nil || flags.WroteHelp(err) {
		return 0
	}

	return 1
}
