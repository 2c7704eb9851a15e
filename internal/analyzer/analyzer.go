package analyzer

import (
	"context"

	"github.com/moghouse/gearsweep/internal/utils"
	"github.com/moghouse/gearsweep/pkg/checklist"
	"github.com/moghouse/gearsweep/pkg/gearswap"
	"github.com/moghouse/gearsweep/pkg/history"
	"github.com/moghouse/gearsweep/pkg/inventory"
	"github.com/moghouse/gearsweep/pkg/orphan"
)

// Config is the analysis configuration, sourced from the config file by the
// CLI and carried as-is by the server.
type Config struct {
	SlotNames         []string
	CommentMarker     string
	TrackedContainers map[int]bool
}

// DefaultConfig returns the stock slot names, comment marker and tracked
// wardrobes.
func DefaultConfig() Config {
	return Config{
		SlotNames:         gearswap.DefaultSlotNames(),
		CommentMarker:     gearswap.DefaultCommentMarker,
		TrackedContainers: orphan.DefaultTrackedContainers(),
	}
}

// Inputs are the pre-read analysis inputs. The pipeline never touches the
// filesystem beyond the store and history handles it is given.
type Inputs struct {
	Scripts       []gearswap.ScriptFile
	InventoryName string
	Inventory     []inventory.Item
	SkippedRows   int
}

// Summary is what one analysis run produced.
type Summary struct {
	Refs        int
	Items       int
	SkippedRows int
	Orphans     []orphan.Entry
	Stats       []gearswap.FileStat
	Merge       checklist.MergeStats
	State       *checklist.State
}

// Run executes the pipeline: scan scripts, detect orphans, merge into the
// persisted checklist inside the store's critical section, then append to
// the run log. A history failure never fails the analysis; the log is
// best-effort.
func Run(cfg Config, in Inputs, store *checklist.Store, hist *history.DB) (*Summary, error) {
	if cfg.TrackedContainers == nil {
		cfg.TrackedContainers = orphan.DefaultTrackedContainers()
	}

	refs, stats := gearswap.Scan(in.Scripts, gearswap.ScanOptions{
		SlotNames:     cfg.SlotNames,
		CommentMarker: cfg.CommentMarker,
	})
	orphans := orphan.Detect(in.Inventory, refs, cfg.TrackedContainers)

	scriptNames := make([]string, 0, len(in.Scripts))
	for _, f := range in.Scripts {
		scriptNames = append(scriptNames, f.Name)
	}

	var merge checklist.MergeStats
	state, err := store.Mutate(func(s *checklist.State) error {
		merge = s.Merge(orphans)
		s.InventoryFile = in.InventoryName
		s.ScriptFiles = scriptNames
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Refs:        refs.Len(),
		Items:       len(in.Inventory),
		SkippedRows: in.SkippedRows,
		Orphans:     orphans,
		Stats:       stats,
		Merge:       merge,
		State:       state,
	}

	if hist != nil {
		recordRun(hist, in, summary, scriptNames)
	}
	return summary, nil
}

func recordRun(hist *history.DB, in Inputs, summary *Summary, scriptNames []string) {
	changes := make([]history.Change, 0, len(summary.Merge.Changes))
	for _, c := range summary.Merge.Changes {
		changes = append(changes, history.Change{
			Key:           c.Key,
			ItemName:      c.ItemName,
			ContainerName: c.ContainerName,
			ChangeType:    c.ChangeType,
		})
	}
	_, err := hist.RecordRun(context.Background(), history.Run{
		InventoryFile: in.InventoryName,
		ScriptFiles:   scriptNames,
		Scripts:       len(in.Scripts),
		Refs:          summary.Refs,
		Items:         summary.Items,
		Orphans:       len(summary.Orphans),
		Added:         summary.Merge.Added,
		Updated:       summary.Merge.Updated,
		Retained:      summary.Merge.Retained,
	}, changes)
	if err != nil {
		utils.Log.Warnf("Could not record analysis run: %s", err)
	}
}
