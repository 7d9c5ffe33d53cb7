package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdFeature)
}

var cmdFeature = &cobra.Command{
	Use:   "feature <app-id> <feature> on|off",
	Short: "Toggle a single stealth feature",
	Long: `Toggles one feature flag: invisibility (exclude windows from screen
capture), dock_hidden (remove the Dock icon) or disguised (generic
process name). On a protected app the patch is rewritten in place; on an
unprotected app the flag is only recorded and takes effect when
protection is enabled.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := parseOnOff(args[2])
		if err != nil {
			return err
		}

		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		app, err := api.SetFeature(ctx, args[0], args[1], enabled)
		if err != nil {
			return err
		}

		printApp(app)
		if !app.Protected {
			fmt.Fprintln(os.Stdout, "Flag recorded; it takes effect when protection is enabled")
		}
		return nil
	},
}
