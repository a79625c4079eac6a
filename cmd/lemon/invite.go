package main

import (
	"fmt"

	"github.com/aretw0/lemon/pkg/invite"
	"github.com/spf13/cobra"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Encode or decode the secret invite link",
}

var inviteEncodeCmd = &cobra.Command{
	Use:   "encode <url>",
	Short: "Encode an invite URL for the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := invite.Encode(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), enc)
		return nil
	},
}

var inviteDecodeCmd = &cobra.Command{
	Use:   "decode [encoded]",
	Short: "Decode an invite (defaults to the configured one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoded := ""
		if len(args) == 1 {
			encoded = args[0]
		} else {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			encoded = cfg.Invite
		}
		url, err := invite.Decode(encoded)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

func init() {
	inviteCmd.AddCommand(inviteEncodeCmd, inviteDecodeCmd)
	rootCmd.AddCommand(inviteCmd)
}
