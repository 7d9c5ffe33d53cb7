package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdRepair)
}

var cmdRepair = &cobra.Command{
	Use:   "repair <app-id>",
	Short: "Restore an app flagged after drift or a failed patch",
	Long: `Restores the app's entry script from its backup, clears the error state
and, if the app should be protected, re-applies the patch from scratch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		app, err := api.Repair(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, "Repaired:")
		printApp(app)
		return nil
	},
}
