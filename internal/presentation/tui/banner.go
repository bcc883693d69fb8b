package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the seltree ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	if !IsTerminal(w) {
		p = termenv.Ascii
	}
	lines := []struct{ text, color string }{
		{"           _ _                ", "#818cf8"},
		{"  ___  ___| | |_ _ __ ___  ___", "#a78bfa"},
		{" / __|/ _ \\ | __| '__/ _ \\/ _ \\", "#c084fc"},
		{" \\__ \\  __/ | |_| | |  __/  __/", "#e879f9"},
		{" |___/\\___|_|\\__|_|  \\___|\\___|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Status colours a short status word: green when ok, red otherwise.
func Status(w io.Writer, text string, ok bool) string {
	p := termenv.ColorProfile()
	if !IsTerminal(w) {
		return text
	}
	color := "#22c55e"
	if !ok {
		color = "#ef4444"
	}
	return termenv.String(text).Foreground(p.Color(color)).Bold().String()
}
