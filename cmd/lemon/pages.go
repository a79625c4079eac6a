package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/lemon/internal/presentation/tui"
	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/gate"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Show the page order and which pages are unlocked",
	Long: `Prints every configured page in unlock order. Pass --visited to see
which pages a visitor with that history could open.`,
	Example: "  lemon pages --visited intro,memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		order, err := cfg.Order()
		if err != nil {
			return err
		}
		visitedFlag, _ := cmd.Flags().GetStringSlice("visited")
		visited := domain.NewVisitedSet()
		for _, k := range visitedFlag {
			k = strings.TrimSpace(k)
			if !order.Contains(k) {
				return fmt.Errorf("%w: %q", domain.ErrUnknownPage, k)
			}
			visited.Add(k)
		}

		g := gate.New(order)
		md := tui.StatusTable(g.Statuses(visited), g.Frontier(visited))

		out := cmd.OutOrStdout()
		if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
			_, err := fmt.Fprint(out, md)
			return err
		}
		render, err := tui.NewRenderer()
		if err != nil {
			return err
		}
		rendered, err := render(md)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(pagesCmd)
	pagesCmd.Flags().StringSlice("visited", nil, "Comma-separated list of visited page keys")
}
