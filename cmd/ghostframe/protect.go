package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdProtect)
}

var cmdProtect = &cobra.Command{
	Use:   "protect <app-id> on|off",
	Short: "Toggle protection for an application",
	Long: `Turning protection on patches the app's entry script with the stealth
snippet for its enabled features; turning it off restores the original
script byte for byte. The app must be restarted to pick up the change.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := parseOnOff(args[1])
		if err != nil {
			return err
		}

		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		app, err := api.SetProtection(ctx, args[0], enabled)
		if err != nil {
			return err
		}

		printApp(app)
		if enabled {
			fmt.Fprintln(os.Stdout, "Restart the app to activate protection (ghostframe restart)")
		}
		return nil
	},
}
