package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdRm)
}

var cmdRm = &cobra.Command{
	Use:   "rm <app-id>",
	Short: "Stop tracking an application",
	Long:  `Removes the application from the registry. A protected app is unpatched first so no tracked file is left modified.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		warning, err := api.Untrack(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, "App removed")
		if warning != "" {
			fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
		}
		return nil
	},
}
