package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helixd",
		Short: "Twitch token lifecycle and role resolution daemon",
		Long: `helixd manages OAuth2 tokens for a Twitch application and answers
channel role queries (moderators, editors, VIPs, subscribers,
followers) over HTTP.

Tokens are persisted to sqlite encrypted with a key derived from the
application client secret, and are refreshed autonomously for as long
as the daemon runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	return cmd
}
