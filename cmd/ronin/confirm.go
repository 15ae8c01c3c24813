package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/benreeve1984/ronin/internal/tools"
)

// terminalConfirmer asks the user to approve each proposed change on the
// terminal. Answering "a" approves the current change and every later one in
// this session.
type terminalConfirmer struct {
	in         *bufio.Reader
	out        io.Writer
	approveAll bool
}

func newTerminalConfirmer(in io.Reader, out io.Writer) *terminalConfirmer {
	return &terminalConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm presents the proposal and blocks for a y/N/a answer. EOF on stdin
// counts as declining.
func (c *terminalConfirmer) Confirm(ctx context.Context, p tools.Proposal) (bool, error) {
	if c.approveAll {
		return true, nil
	}

	fmt.Fprintln(c.out)
	color.New(color.Bold).Fprintln(c.out, p.Summary)
	if p.Diff != "" {
		fmt.Fprintln(c.out, colorizeDiff(p.Diff))
	}
	fmt.Fprint(c.out, "Apply? [y/N/a] ")

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.text == "" {
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(a.text)) {
		case "y", "yes":
			return true, nil
		case "a", "all":
			c.approveAll = true
			return true, nil
		default:
			return false, nil
		}
	}
}

// colorizeDiff highlights unified diff lines: additions green, removals red,
// hunk headers cyan.
func colorizeDiff(diff string) string {
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = color.New(color.Bold).Sprint(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = color.CyanString(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = color.GreenString(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = color.RedString(line)
		}
	}
	return strings.Join(lines, "\n")
}
