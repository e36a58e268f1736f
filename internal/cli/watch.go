package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	watchCoins    []string
	watchInterval int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the live dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd)
	},
}

// runWatch applies flag overrides and starts the dashboard. It backs
// both `watch` and the bare root command.
func runWatch(cmd *cobra.Command) error {
	a := getApp()

	if cmd.Flags().Changed("coins") {
		a.Config.Watch.Coins = watchCoins
	}
	if cmd.Flags().Changed("interval") {
		if watchInterval <= 0 {
			return fmt.Errorf("--interval must be greater than zero")
		}
		a.Config.Watch.Interval = time.Duration(watchInterval) * time.Second
	}

	return a.Run(cmd.Context())
}

func init() {
	for _, cmd := range []*cobra.Command{watchCmd, rootCmd} {
		cmd.Flags().StringSliceVarP(&watchCoins, "coins", "c", nil, "Coins to track (comma separated, e.g. btc,eth)")
		cmd.Flags().IntVarP(&watchInterval, "interval", "i", 0, "Refresh interval in seconds (defaults to config)")
	}
}
