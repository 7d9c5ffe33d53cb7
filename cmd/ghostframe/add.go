package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdAdd)
}

var cmdAdd = &cobra.Command{
	Use:   "add <bundle-path>",
	Short: "Start tracking an application",
	Long:  `Registers the application bundle at the given path. The app starts unprotected; enable patching with "ghostframe protect".`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		app, err := api.Track(ctx, path)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, "Tracking:")
		printApp(app)
		return nil
	},
}
