package client

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// progressWriter wraps dst with a cosmetic transfer indicator on
// stderr when stderr is a terminal. size is the known total in bytes,
// or -1 for an indeterminate spinner (used when streaming a download
// whose total length isn't known up front). It never affects what is
// written to dst.
func progressWriter(dst io.Writer, description string, size int64) io.Writer {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return dst
	}

	bar := progressbar.DefaultBytes(size, description)

	return io.MultiWriter(dst, bar)
}
