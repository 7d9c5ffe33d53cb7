package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GhostFramer/GhostFrame/internal/models"
)

func init() {
	rootCmd.AddCommand(cmdEvents)
}

var cmdEvents = &cobra.Command{
	Use:   "events",
	Short: "Follow the daemon event stream",
	Long:  `Subscribes to the daemon's websocket stream and prints state changes, drift notices and restart completions until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		conn, err := api.Events(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		// Ctrl-C unblocks the read by closing the connection.
		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			var ev models.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("stream closed: %w", err)
			}
			printEvent(ev)
		}
	},
}

func printEvent(ev models.Event) {
	ts := ev.Timestamp.Format(time.RFC3339)
	switch {
	case ev.App != nil:
		fmt.Fprintf(os.Stdout, "%s %-12s %s (%s)\n", ts, ev.Type, ev.App.Name, ev.App.State)
	case ev.Message != "":
		fmt.Fprintf(os.Stdout, "%s %-12s %s %s\n", ts, ev.Type, ev.AppID, ev.Message)
	default:
		fmt.Fprintf(os.Stdout, "%s %-12s %s\n", ts, ev.Type, ev.AppID)
	}
}
