package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

// clipboard writes exported text to a file, or to the terminal when no
// file is given.
type clipboard struct {
	path string
	w    io.Writer
}

func newClipboard(path string, w io.Writer) *clipboard {
	return &clipboard{path: path, w: w}
}

func (c *clipboard) WriteText(_ context.Context, text string) error {
	if c.path == "" || c.path == "-" {
		_, err := fmt.Fprintln(c.w, text)
		return err
	}
	return os.WriteFile(c.path, []byte(text+"\n"), 0o644)
}
