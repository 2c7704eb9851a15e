package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/moghouse/gearsweep/internal/output"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the checklist and all progress",
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return errors.New("this discards all checklist progress; re-run with --force to confirm")
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		output.PrintSuccess("Checklist cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().Bool("force", false, "Confirm discarding all progress")
}
