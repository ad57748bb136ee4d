package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// pager shows one block of output at a time. It pipes through the
// configured command when out is a terminal and writes directly otherwise.
type pager struct {
	command []string
	out     io.Writer
	errOut  io.Writer
}

func newPager(command []string, out, errOut io.Writer) *pager {
	if !isTerminal(out) {
		command = nil
	}
	return &pager{command: command, out: out, errOut: errOut}
}

// page displays text and waits for the pager to exit.
func (p *pager) page(text string) error {
	if len(p.command) == 0 {
		_, err := fmt.Fprintln(p.out, text)
		return err
	}
	c := exec.Command(p.command[0], p.command[1:]...)
	c.Stdin = strings.NewReader(text)
	c.Stdout = p.out
	c.Stderr = p.errOut
	if err := c.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			// No pager installed: fall back to direct output from now on.
			p.command = nil
			return p.page(text)
		}
		return fmt.Errorf("run pager %s: %w", p.command[0], err)
	}
	return nil
}
