package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/lemon/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	return r.Render, nil
}

// StatusTable formats page statuses as a Markdown table.
func StatusTable(statuses []domain.PageStatus, frontier int) string {
	var b strings.Builder
	b.WriteString("# Pages\n\n")
	b.WriteString("| # | Page | State | Visited |\n")
	b.WriteString("| - | ---- | ----- | ------- |\n")
	for _, s := range statuses {
		visited := ""
		if s.Visited {
			visited = "yes"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", s.Index+1, s.Key, s.State, visited)
	}
	fmt.Fprintf(&b, "\nFrontier: **%d**\n", frontier+1)
	return b.String()
}
