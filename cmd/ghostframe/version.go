package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GhostFramer/GhostFrame/internal/version"
)

func init() {
	rootCmd.AddCommand(cmdVersion)
}

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Show CLI and daemon versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(os.Stdout, "ghostframe %s (built %s, commit %s)\n",
			version.Version, version.BuildTime, version.GitCommit)

		api, err := newClient()
		if err != nil {
			return nil
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		info, err := api.Version(ctx)
		if err != nil {
			fmt.Fprintln(os.Stdout, "Daemon: not reachable")
			return nil
		}
		fmt.Fprintf(os.Stdout, "Daemon: %s (commit %s)\n", info["version"], info["git_commit"])
		return nil
	},
}
