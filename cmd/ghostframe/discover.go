package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdDiscover)
}

var cmdDiscover = &cobra.Command{
	Use:   "discover",
	Short: "Scan for Electron apps that can be tracked",
	Long:  `Scans the configured install roots for Electron applications with a patchable entry script, excluding apps already tracked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		candidates, err := api.Discover(ctx)
		if err != nil {
			return err
		}

		if len(candidates) == 0 {
			fmt.Fprintln(os.Stdout, "No eligible applications found")
			return nil
		}
		for _, c := range candidates {
			id := c.BundleID
			if id == "" {
				id = "-"
			}
			fmt.Fprintf(os.Stdout, "%s  bundle=%s entry=%s\n", c.Path, id, c.EntryScript)
		}
		return nil
	},
}
