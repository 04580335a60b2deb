package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type statusLine struct {
	label  string
	kind   statusKind
	detail string
}

const ansiReset = "\x1b[0m"

// statusKindColor returns the ANSI color for the bracketed marker alone;
// info lines stay uncolored.
func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return "\x1b[32m"
	case statusWarn:
		return "\x1b[33m"
	case statusError:
		return "\x1b[31m"
	default:
		return ""
	}
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// writeStatusSection prints a titled section whose label column is sized to
// the longest label in the section.
func writeStatusSection(w io.Writer, title string, lines []statusLine, colorize bool) {
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	width := 0
	for _, line := range lines {
		if n := len(line.label) + 1; n > width {
			width = n
		}
	}
	for _, line := range lines {
		marker := "[" + statusKindLabel(line.kind) + "]"
		if colorize {
			if color := statusKindColor(line.kind); color != "" {
				marker = color + marker + ansiReset
			}
		}
		if line.detail != "" {
			marker += " " + line.detail
		}
		fmt.Fprintf(w, "  %-*s %s\n", width, line.label+":", marker)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
