package main

import (
	"github.com/spf13/cobra"

	"github.com/GhostFramer/GhostFrame/internal/upgrade"
)

var upgradeForce bool

func init() {
	rootCmd.AddCommand(cmdUpgrade)
	cmdUpgrade.Flags().BoolVarP(&upgradeForce, "force", "f", false, "Reinstall even when already on the latest version")
}

var cmdUpgrade = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade ghostframe to the latest release",
	Long:  `Downloads the latest release binary for this platform from GitHub and swaps it in place. A running daemon keeps its old binary until restarted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return upgrade.Run(cmd.Context(), upgradeForce)
	},
}
