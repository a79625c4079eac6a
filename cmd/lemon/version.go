package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/lemon"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lemon",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lemon version %s\n", strings.TrimSpace(lemon.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
