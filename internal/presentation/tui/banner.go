package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the compass banner, colored when w is a terminal.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct{ text, color string }{
		{"   ___ ___  _ __ ___  _ __   __ _ ___ ___ ", "#2dd4bf"},
		{"  / __/ _ \\| '_ ` _ \\| '_ \\ / _` / __/ __|", "#22d3ee"},
		{" | (_| (_) | | | | | | |_) | (_| \\__ \\__ \\", "#38bdf8"},
		{"  \\___\\___/|_| |_| |_| .__/ \\__,_|___/___/", "#60a5fa"},
		{"                     |_|                  ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Prompt returns the styled input prompt.
func Prompt(w io.Writer) string {
	out := termenv.NewOutput(w)
	return out.String("you › ").Foreground(out.ColorProfile().Color("#2dd4bf")).Bold().String()
}

// Faint dims s, used for status lines such as node transitions.
func Faint(w io.Writer, s string) string {
	return termenv.NewOutput(w).String(s).Faint().String()
}
