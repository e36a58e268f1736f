package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppf/cryptowatcher/internal/app"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [coins...]",
	Short: "Print current 24h stats without starting the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Quote(cmd.Context(), app.QuoteOptions{Coins: args})
	},
}
