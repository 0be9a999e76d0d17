// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/MyteScripts/gridbot/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "gridbot",
	Short: "gridbot is a community management bot with a web dashboard",
	Long: `gridbot keeps a Discord community running: levels and XP, a coin economy,
moderation, giveaways, tickets and invite tracking, with a web dashboard
on top. Every command is gated by a file backed access resolver that can
be reconfigured from chat.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
