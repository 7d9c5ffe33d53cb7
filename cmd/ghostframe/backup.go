package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GhostFramer/GhostFrame/internal/models"
)

var exportOutput string

func init() {
	rootCmd.AddCommand(cmdExport)
	rootCmd.AddCommand(cmdImport)

	cmdExport.Flags().StringVarP(&exportOutput, "output", "o", "", "Write the backup to a file instead of stdout")
}

var cmdExport = &cobra.Command{
	Use:   "export",
	Short: "Export the tracked-application list",
	Long:  `Writes a portable JSON backup of tracked apps and their feature flags. Patch state never travels: imports always arrive unprotected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		data, err := api.Export(ctx)
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		encoded = append(encoded, '\n')

		if exportOutput == "" {
			_, err = os.Stdout.Write(encoded)
			return err
		}
		if err := os.WriteFile(exportOutput, encoded, 0644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Exported %d app(s) to %s\n", len(data.Apps), exportOutput)
		return nil
	},
}

var cmdImport = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a tracked-application backup",
	Long:  `Restores tracked apps from an export file ("-" reads stdin). Entries whose bundle no longer exists on this machine are skipped.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if args[0] == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		var data models.ExportData
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse backup: %w", err)
		}

		api, err := newClient()
		if err != nil {
			return err
		}

		ctx, cancel := apiContext(cmd)
		defer cancel()

		added, skipped, err := api.Import(ctx, &data)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Imported %d app(s), skipped %d\n", added, skipped)
		return nil
	},
}
