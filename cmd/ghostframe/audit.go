package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	auditApp    string
	auditLimit  int
	auditOffset int
)

func init() {
	rootCmd.AddCommand(cmdAudit)

	cmdAudit.Flags().StringVar(&auditApp, "app", "", "Only show entries for this app id")
	cmdAudit.Flags().IntVar(&auditLimit, "limit", 20, "Maximum number of entries")
	cmdAudit.Flags().IntVar(&auditOffset, "offset", 0, "Number of entries to skip")
}

var cmdAudit = &cobra.Command{
	Use:   "audit",
	Short: "Show the operation audit log",
	Long:  `Lists recorded operations (track, protect, repair, restart, drift) newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		logs, err := api.AuditLogs(ctx, auditApp, auditLimit, auditOffset)
		if err != nil {
			return err
		}

		if len(logs) == 0 {
			fmt.Fprintln(os.Stdout, "No audit entries")
			return nil
		}
		for _, entry := range logs {
			name := entry.AppName
			if name == "" {
				name = "-"
			}
			line := fmt.Sprintf("%s  %-10s %-9s %s", entry.CreatedAt, entry.Action, entry.Outcome, name)
			if entry.Details != "" && entry.Details != "{}" {
				line += "  " + entry.Details
			}
			fmt.Fprintln(os.Stdout, line)
		}
		return nil
	},
}
