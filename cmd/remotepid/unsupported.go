//go:build !linux && !darwin && !freebsd && !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(
		os.Stderr,
		"remotepid is only supported on Linux, macOS, FreeBSD, and Windows.\n\nThis platform has no way to map a TCP connection to the process that owns it.",
	)
	os.Exit(2)
}
