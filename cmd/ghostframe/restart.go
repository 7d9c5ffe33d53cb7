package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdRestart)
}

var cmdRestart = &cobra.Command{
	Use:   "restart <app-id>",
	Short: "Quit and relaunch an application",
	Long: `Asks the daemon to terminate the app's processes and launch it again,
which is how an applied or removed patch actually takes effect. The
restart runs in the background; completion shows up on "ghostframe
events".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		app, err := api.Restart(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Restart scheduled for %q\n", app.Name)
		return nil
	},
}
