package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moghouse/gearsweep/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the checklist grouped by container",
	RunE: func(cmd *cobra.Command, _ []string) error {
		uncheckedOnly, _ := cmd.Flags().GetBool("unchecked")

		store, err := openStore()
		if err != nil {
			return err
		}
		state, err := store.Load()
		if err != nil {
			return err
		}
		if state == nil || len(state.Entries) == 0 {
			output.PrintInfo("No checklist yet. Run 'gearsweep analyze' first.")
			return nil
		}

		lastContainer := ""
		shown := 0
		for _, e := range state.SortedEntries() {
			if uncheckedOnly && e.Checked {
				continue
			}
			if e.ContainerName != lastContainer {
				if lastContainer != "" {
					fmt.Println()
				}
				output.Container.Printf("[%s]\n", strings.ToUpper(e.ContainerName))
				lastContainer = e.ContainerName
			}
			box := output.Unchecked.Sprint("[ ]")
			if e.Checked {
				box = output.Checked.Sprint("[x]")
			}
			fmt.Printf("  %s %s\n", box, e.DisplayName())
			if e.Note != "" {
				output.Dim.Printf("      note: %s\n", e.Note)
			}
			output.Dim.Printf("      key: %s\n", e.Key)
			shown++
		}
		fmt.Println()
		output.PrintInfo("%d items shown, %d/%d checked", shown, state.CheckedCount(), len(state.Entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolP("unchecked", "u", false, "Show only unchecked items")
}
