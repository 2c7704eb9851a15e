package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/moghouse/gearsweep/internal/output"
	"github.com/moghouse/gearsweep/pkg/checklist"
)

var checkCmd = &cobra.Command{
	Use:   "check <key>...",
	Short: "Mark checklist items as done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setChecked(args, true)
	},
}

var uncheckCmd = &cobra.Command{
	Use:   "uncheck <key>...",
	Short: "Mark checklist items as not done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setChecked(args, false)
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <key> <text>...",
	Short: "Set the note on a checklist item",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		note := strings.Join(args[1:], " ")
		if _, err := store.Mutate(func(s *checklist.State) error {
			return s.SetNote(args[0], note)
		}); err != nil {
			return err
		}
		output.PrintSuccess("Note set on %s", args[0])
		return nil
	},
}

func setChecked(keys []string, checked bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	state, err := store.Mutate(func(s *checklist.State) error {
		for _, key := range keys {
			if err := s.SetChecked(key, checked); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	verb := "Checked"
	if !checked {
		verb = "Unchecked"
	}
	output.PrintSuccess("%s %d items (%d/%d done)", verb, len(keys), state.CheckedCount(), len(state.Entries))
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(uncheckCmd)
	rootCmd.AddCommand(noteCmd)
}
