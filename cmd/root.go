// Package cmd contains the parley CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - AI chat assistant server",
	Long: `Parley is the backend for the Parley browser chat client.

It serves a JSON API for conversations, routing each message to chat,
vision, web search, weather, or image generation. Running parley with no
subcommand starts the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var debugLogging bool

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "enable debug logging")
}
