// Package shell is the thin command dispatcher described in spec §6: it
// reads lines, splits on whitespace, and calls the corresponding
// FileBrowser operation. Parsing, history, and pretty-printing are
// intentionally minimal — the specification treats the interactive shell
// itself as an external collaborator, fixing only its command grammar.
//
// Grounded on the original source's console::Console command loop,
// reworked from rustyline + tokio onto bufio.Scanner + context.Context.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mixaal/parquet-viewer-go/internal/browser"
)

const defaultMaxRows = 20

// Shell reads commands from in and writes output to out, dispatching to b.
type Shell struct {
	browser *browser.FileBrowser
	scanner *bufio.Scanner
	out     io.Writer
	history []string
}

// New returns a Shell driving b, reading commands from in and writing
// responses to out.
func New(b *browser.FileBrowser, in io.Reader, out io.Writer) *Shell {
	return &Shell{browser: b, scanner: bufio.NewScanner(in), out: out}
}

// Run reads commands until EOF, an explicit "exit", or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome to the console! Type 'help' for a list of commands.")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(s.out, ">> ")
		if !s.scanner.Scan() {
			fmt.Fprintln(s.out, "CTRL+D detected. Exiting console...")
			return s.scanner.Err()
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		s.history = append(s.history, line)

		args := strings.Fields(line)
		if s.dispatch(ctx, args) {
			return nil
		}
	}
}

// dispatch runs one command, returning true if the shell should exit.
func (s *Shell) dispatch(ctx context.Context, args []string) bool {
	switch args[0] {
	case "ls":
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		rows, err := s.browser.List(ctx, path)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return false
		}
		printRows(s.out, rows)

	case "cd":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: cd <directory>")
			return false
		}
		if err := s.browser.ChangeDir(args[1]); err != nil {
			fmt.Fprintf(s.out, "Error changing directory: %v\n", err)
		}

	case "pwd":
		fmt.Fprintf(s.out, "Current directory: %q\n", s.browser.CurrentDir())

	case "view":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: view <file>")
			return false
		}
		path := args[1]
		maxRows := defaultMaxRows
		if len(args) > 2 {
			if n, err := strconv.Atoi(args[2]); err == nil {
				maxRows = n
			}
		}
		viewed, err := s.browser.View(ctx, path, maxRows)
		if err != nil {
			fmt.Fprintf(s.out, "Error viewing file %s: %v\n", path, err)
			return false
		}
		for _, v := range viewed {
			printViewedFile(s.out, v)
		}

	case "history":
		for i, cmd := range s.history {
			fmt.Fprintf(s.out, "%d: %s\n", i+1, cmd)
		}

	case "help":
		fmt.Fprintln(s.out, "Available commands:")
		fmt.Fprintln(s.out, "  ls [path]     - List files in the directory")
		fmt.Fprintln(s.out, "  cd <path>     - Change directory")
		fmt.Fprintln(s.out, "  pwd           - Print current directory")
		fmt.Fprintln(s.out, "  view <file>   - View the contents of a file")
		fmt.Fprintln(s.out, "  history       - Show command history")
		fmt.Fprintln(s.out, "  help          - Show this help message")
		fmt.Fprintln(s.out, "  exit          - Exit the console")

	case "exit":
		fmt.Fprintln(s.out, "Exiting console...")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", args[0])
	}
	return false
}

func printViewedFile(out io.Writer, v browser.ViewedFile) {
	if v.Err != nil {
		fmt.Fprintf(out, "Error viewing file %s: %v\n", v.Filename, v.Err)
		return
	}
	if v.Rows != nil {
		fmt.Fprintln(out, "Viewing Parquet file:")
		printRows(out, v.Rows)
		return
	}
	fmt.Fprintln(out, "File contents:")
	fmt.Fprintln(out, v.Text)
}

// printRows pads each column to the widest value seen in it. Not a
// specified component; kept deliberately simple.
func printRows(out io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(widths) {
				b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
			}
		}
		fmt.Fprintln(out, strings.TrimRight(b.String(), " "))
	}
}
