package clifmt

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultTableWidth   = 100
	defaultMinLastWidth = 24
)

// TableOptions describes a table whose last column wraps to the terminal
// width. Rows shorter than Headers are padded with empty cells.
type TableOptions struct {
	Title        string
	Headers      []string
	Rows         [][]string
	EmptyText    string
	DefaultWidth int
	MinLastWidth int
}

func PrintTable(out io.Writer, opts TableOptions) {
	if out == nil {
		out = os.Stdout
	}
	if title := strings.TrimSpace(opts.Title); title != "" {
		fmt.Fprintln(out, Headerf("%s (%d)", title, len(opts.Rows)))
	}
	if len(opts.Rows) == 0 {
		empty := strings.TrimSpace(opts.EmptyText)
		if empty == "" {
			empty = "No entries."
		}
		fmt.Fprintln(out, Warn(empty))
		return
	}

	cols := len(opts.Headers)
	for _, row := range opts.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}
	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	widths := make([]int, cols)
	for i := 0; i < cols-1; i++ {
		widths[i] = utf8.RuneCountInString(cell(opts.Headers, i))
		for _, row := range opts.Rows {
			if w := utf8.RuneCountInString(cell(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	fixed := 0
	for _, w := range widths[:cols-1] {
		fixed += w + 2
	}
	widths[cols-1] = lastColumnWidth(out, fixed, opts.DefaultWidth, opts.MinLastWidth)

	header := make([]string, cols)
	rule := make([]string, cols)
	for i := range header {
		header[i] = Key(padRightRunes(cell(opts.Headers, i), widths[i]))
		rule[i] = Dim(strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(out, strings.TrimRight(strings.Join(header, "  "), " "))
	fmt.Fprintln(out, strings.Join(rule, "  "))

	for _, row := range opts.Rows {
		lines := wrapTextRunes(cell(row, cols-1), widths[cols-1])
		parts := make([]string, cols)
		for i := 0; i < cols-1; i++ {
			s := padRightRunes(cell(row, i), widths[i])
			if i == 0 {
				s = Success(s)
			}
			parts[i] = s
		}
		parts[cols-1] = lines[0]
		fmt.Fprintln(out, strings.TrimRight(strings.Join(parts, "  "), " "))
		indent := strings.Repeat(" ", fixed)
		for _, line := range lines[1:] {
			fmt.Fprintln(out, indent+line)
		}
	}
}

func lastColumnWidth(out io.Writer, fixed, defaultWidth, minWidth int) int {
	if defaultWidth <= 0 {
		defaultWidth = defaultTableWidth
	}
	if minWidth <= 0 {
		minWidth = defaultMinLastWidth
	}
	width := defaultWidth
	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if tw, _, err := term.GetSize(int(file.Fd())); err == nil && tw > 0 {
			width = tw
		}
	}
	if w := width - fixed; w > minWidth {
		return w
	}
	return minWidth
}

func padRightRunes(s string, width int) string {
	missing := width - utf8.RuneCountInString(s)
	if missing <= 0 {
		return s
	}
	return s + strings.Repeat(" ", missing)
}

// wrapTextRunes wraps on spaces and hard-splits words longer than width.
func wrapTextRunes(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" || width <= 0 {
		return []string{text}
	}
	var lines []string
	current := ""
	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}
	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > width {
			flush()
			runes := []rune(word)
			lines = append(lines, string(runes[:width]))
			word = string(runes[width:])
		}
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			flush()
			current = word
		}
	}
	flush()
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
