package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent analysis runs (default 20)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db := openHistory()
		if db == nil {
			return errors.New("history database is not available")
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			ts := r.RanAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  run=%d  %s  scripts=%d refs=%d items=%d orphans=%d  +%d ~%d =%d\n",
				ts, r.ID, r.InventoryFile, r.Scripts, r.Refs, r.Items, r.Orphans, r.Added, r.Updated, r.Retained)
			if len(r.ScriptFiles) > 0 {
				fmt.Printf("    %s\n", strings.Join(r.ScriptFiles, ", "))
			}
		}
		return nil
	},
}

var historyChangesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent item-level checklist changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db := openHistory()
		if db == nil {
			return errors.New("history database is not available")
		}
		defer db.Close()

		changes, err := db.ListChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  run=%d  %s  %s  key=%s\n", ts, c.ChangeType, c.RunID, c.ContainerName, c.ItemName, c.Key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyChangesCmd)
	historyCmd.Flags().Int("limit", 20, "Number of recent runs to show")
	historyChangesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
}
