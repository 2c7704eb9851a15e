package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moghouse/gearsweep/internal/analyzer"
	"github.com/moghouse/gearsweep/internal/output"
	"github.com/moghouse/gearsweep/internal/utils"
	"github.com/moghouse/gearsweep/pkg/gearswap"
	"github.com/moghouse/gearsweep/pkg/inventory"
	"github.com/moghouse/gearsweep/pkg/orphan"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [lua-file-or-dir]...",
	Short: "Find orphaned wardrobe items and merge them into the checklist",
	Long: `Scan GearSwap lua files (local paths, directories, or URLs) and a Windower
inventory CSV export, detect wardrobe items no gearset references, and merge
them into the persisted checklist. Progress on items from earlier runs is
kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		invPath, _ := cmd.Flags().GetString("inventory")
		urls, _ := cmd.Flags().GetStringSlice("url")
		reportPath, _ := cmd.Flags().GetString("report")
		fresh, _ := cmd.Flags().GetBool("fresh")

		if len(args) == 0 && len(urls) == 0 {
			return errors.New("provide at least one lua file, directory, or --url")
		}

		scripts, err := readScripts(args)
		if err != nil {
			return err
		}
		if len(urls) > 0 {
			fetched, err := gearswap.Fetch(urls)
			if err != nil {
				return err
			}
			scripts = append(scripts, fetched...)
		}
		if len(scripts) == 0 {
			return errors.New("no lua files found in the given paths")
		}

		items, skipped, err := inventory.ParseFile(invPath)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		// An unreadable prior state is only discarded with explicit consent.
		if _, err := store.Load(); err != nil {
			if !fresh {
				return fmt.Errorf("could not load previous progress: %w\nRe-run with --fresh to discard it and start over", err)
			}
			output.PrintWarning("Discarding unreadable previous progress at %s", store.Path())
			if err := store.Clear(); err != nil {
				return err
			}
		}

		hist := openHistory()
		defer hist.Close()

		summary, err := analyzer.Run(analyzerConfig(), analyzer.Inputs{
			Scripts:       scripts,
			InventoryName: filepath.Base(invPath),
			Inventory:     items,
			SkippedRows:   skipped,
		}, store, hist)
		if err != nil {
			return err
		}

		for _, stat := range summary.Stats {
			if stat.Gearsets == 0 {
				output.PrintInfo("%s contributed no gearsets", stat.Name)
			}
			utils.Log.Debugf("%s: %d gearsets, %d item references", stat.Name, stat.Gearsets, stat.Refs)
		}

		names := make([]string, 0, len(scripts))
		for _, f := range scripts {
			names = append(names, f.Name)
		}
		report := orphan.Report(summary.Orphans, orphan.ReportMeta{
			InventoryFile: filepath.Base(invPath),
			ScriptFiles:   names,
		})
		fmt.Println(report)

		if reportPath != "" {
			if err := os.WriteFile(reportPath, []byte(report), 0644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			output.PrintSuccess("Report saved to %s", reportPath)
		}

		output.PrintInfo("%d item references in %d lua files, %d inventory rows (%d skipped)",
			summary.Refs, len(scripts), summary.Items, summary.SkippedRows)
		output.PrintInfo("%d orphaned items: %d new, %d updated, %d retained from earlier runs",
			len(summary.Orphans), summary.Merge.Added, summary.Merge.Updated, summary.Merge.Retained)
		output.PrintSuccess("Checklist saved to %s", store.Path())
		return nil
	},
}

// readScripts reads lua files from the given paths. A directory contributes
// its *.lua files, non-recursively, like the Windower addon layout.
func readScripts(paths []string) ([]gearswap.ScriptFile, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			matches, err := filepath.Glob(filepath.Join(p, "*.lua"))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		} else {
			files = append(files, p)
		}
	}

	scripts := make([]gearswap.ScriptFile, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		scripts = append(scripts, gearswap.ScriptFile{Name: filepath.Base(f), Text: string(data)})
	}
	return scripts, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("inventory", "i", "", "Path to the inventory CSV export (required)")
	analyzeCmd.MarkFlagRequired("inventory")
	analyzeCmd.Flags().StringSlice("url", nil, "URL of a lua file to fetch and scan (repeatable)")
	analyzeCmd.Flags().String("report", "", "Also write the plain-text report to this file")
	analyzeCmd.Flags().Bool("fresh", false, "Discard unreadable previous progress and start over")
}
