package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdList)
}

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List tracked applications",
	Long:  `Fetches the tracked-application registry from the daemon.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		apps, err := api.Apps(ctx)
		if err != nil {
			return err
		}

		if len(apps) == 0 {
			fmt.Fprintln(os.Stdout, "No applications tracked")
			return nil
		}
		for i := range apps {
			printApp(&apps[i])
		}
		return nil
	},
}
