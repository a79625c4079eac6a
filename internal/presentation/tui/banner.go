package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Lemon banner followed by the listen address.
func PrintBanner(w io.Writer, addr string) {
	out := termenv.NewOutput(w)
	// Lemon-peel yellow fading into leaf green.
	lines := []struct{ text, color string }{
		{" _", "#fde047"},
		{"| | ___ _ __ ___   ___  _ __", "#facc15"},
		{"| |/ _ \\ '_ ` _ \\ / _ \\| '_ \\", "#eab308"},
		{"| |  __/ | | | | | (_) | | | |", "#a3e635"},
		{"|_|\\___|_| |_| |_|\\___/|_| |_|", "#65a30d"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, out.String("  listening on "+addr).Faint())
	fmt.Fprintln(w)
}
