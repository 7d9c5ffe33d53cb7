package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GhostFramer/GhostFrame/internal/client"
)

func init() {
	rootCmd.AddCommand(cmdStatus)
}

var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		status, err := api.SystemStatus(ctx)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				return err
			}
			return fmt.Errorf("daemon not reachable at %s (start it with \"ghostframe daemon run\"): %w", api.BaseURL(), err)
		}

		uptime := (time.Duration(status.UptimeSeconds) * time.Second).String()
		agent := "foreground"
		if status.RunningAsAgent {
			agent = "launchd (" + status.AgentState + ")"
		}

		fmt.Fprintf(os.Stdout, "GhostFrame daemon %s at %s\n", status.Version["version"], api.BaseURL())
		fmt.Fprintf(os.Stdout, "Uptime: %s  Mode: %s\n", uptime, agent)
		fmt.Fprintf(os.Stdout, "Apps: %d tracked, %d protected, %d in error\n",
			status.Registry.Tracked, status.Registry.Protected, status.Registry.Errors)
		if status.Host != nil && status.Host.Hostname != "" {
			fmt.Fprintf(os.Stdout, "Host: %s %s %s (%s)\n",
				status.Host.Hostname, status.Host.Platform, status.Host.PlatformVersion, status.Host.KernelArch)
		}
		return nil
	},
}
