package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moghouse/gearsweep/internal/output"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the checklist as CSV or JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")

		store, err := openStore()
		if err != nil {
			return err
		}
		state, err := store.Load()
		if err != nil {
			return err
		}
		if state == nil {
			return errors.New("no checklist to export; run 'gearsweep analyze' first")
		}

		var data []byte
		switch format {
		case "csv":
			data = state.ToCSV()
		case "json":
			data, err = state.ToJSON()
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q (want csv or json)", format)
		}

		if outPath == "" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return err
		}
		output.PrintSuccess("Exported %d entries to %s", len(state.Entries), outPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "csv", "Export format: csv or json")
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}
