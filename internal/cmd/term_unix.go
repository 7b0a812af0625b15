//go:build !windows

package cmd

import (
	"os"

	"golang.org/x/sys/unix"
)

// termWidth returns the width of the terminal on stdout, or 0 if stdout is
// not a terminal.
func termWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 0
	}
	return int(ws.Col)
}
