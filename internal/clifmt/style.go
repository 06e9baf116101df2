package clifmt

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Color toggles ANSI styling. It defaults to on for a terminal stdout unless
// NO_COLOR is set.
var Color = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

func paint(code, s string) string {
	if !Color {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func Headerf(format string, args ...any) string { return paint("1", fmt.Sprintf(format, args...)) }
func Key(s string) string                       { return paint("36", s) }
func Dim(s string) string                       { return paint("2", s) }
func Warn(s string) string                      { return paint("33", s) }
func Success(s string) string                   { return paint("32", s) }
