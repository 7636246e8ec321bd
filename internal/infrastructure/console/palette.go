// Package console formats colored, column-aligned text for terminal reports.
package console

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

// ANSI codes
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiHeader = "\033[95m"
	ansiBlue   = "\033[94m"
	ansiCyan   = "\033[96m"
	ansiGreen  = "\033[92m"
	ansiYellow = "\033[93m"
	ansiRed    = "\033[91m"
)

// Palette holds the escape sequences used by reports. The zero value prints plain text.
type Palette struct {
	Header string
	Blue   string
	Cyan   string
	Green  string
	Yellow string
	Red    string
	Bold   string
	Reset  string
}

// ANSIPalette returns the bright ANSI color palette.
func ANSIPalette() Palette {
	return Palette{
		Header: ansiHeader,
		Blue:   ansiBlue,
		Cyan:   ansiCyan,
		Green:  ansiGreen,
		Yellow: ansiYellow,
		Red:    ansiRed,
		Bold:   ansiBold,
		Reset:  ansiReset,
	}
}

// PlainPalette returns a palette without escape sequences.
func PlainPalette() Palette {
	return Palette{}
}

// ForFile returns the ANSI palette when f is a terminal and color is not disabled.
func ForFile(f *os.File, noColor bool) Palette {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return PlainPalette()
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return ANSIPalette()
	}
	return PlainPalette()
}

// Paint wraps s in color, resetting afterwards.
func (p Palette) Paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + p.Reset
}

// Signed picks green for non-negative values and red otherwise.
func (p Palette) Signed(v float64) string {
	if v >= 0 {
		return p.Green
	}
	return p.Red
}

// PadRight pads s with spaces to width display cells.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// PadLeft right-aligns s in width display cells.
func PadLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}

// Width returns the display width of s.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// Rule returns a horizontal line of n copies of ch.
func Rule(ch string, n int) string {
	return strings.Repeat(ch, n)
}
