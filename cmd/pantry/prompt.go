package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
)

var errNoAnswer = errors.New("confirmation needed: run interactively or pass --yes")

// confirm asks a yes/no question on the app's reader. --yes answers for the
// user. Declining prints a note and returns false.
func confirm(c *cli.Context, question string) (bool, error) {
	if c.Bool("yes") {
		return true, nil
	}

	fmt.Fprintf(c.App.Writer, "%s [y/N] ", question)
	answer, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if errors.Is(err, io.EOF) && answer == "" {
		fmt.Fprintln(c.App.Writer)
		return false, errNoAnswer
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		fmt.Fprintln(c.App.Writer, "Cancelled.")
		return false, nil
	}
}
