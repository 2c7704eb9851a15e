package checklist

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/moghouse/gearsweep/pkg/itemname"
	"github.com/moghouse/gearsweep/pkg/orphan"
)

// ErrNotFound is returned when a mutation targets an identity key that is
// not in the state.
var ErrNotFound = errors.New("checklist entry not found")

// StateVersion is the current persisted format version.
const StateVersion = 1

// Entry is one checklist row. Checked and Note belong to the user: they are
// written only by SetChecked/SetNote, never by Merge.
type Entry struct {
	ContainerID   int    `json:"container_id"`
	ContainerName string `json:"container_name"`
	ItemName      string `json:"item_name"`
	Augment       string `json:"augments"`
	Checked       bool   `json:"checked"`
	Note          string `json:"notes"`
}

// State is the persisted, user-editable checklist, keyed by identity key.
type State struct {
	Version       int              `json:"version"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
	InventoryFile string           `json:"inventory_file"`
	ScriptFiles   []string         `json:"script_files"`
	Entries       map[string]Entry `json:"entries"`
}

// NewState returns an empty checklist stamped with the current time.
func NewState() *State {
	now := time.Now().Format(time.RFC3339)
	return &State{
		Version:   StateVersion,
		CreatedAt: now,
		UpdatedAt: now,
		Entries:   make(map[string]Entry),
	}
}

// MergeStats summarizes one Merge call. Changes lists the keys that were
// inserted or whose display fields actually changed, for the run log.
type MergeStats struct {
	Added    int
	Updated  int
	Retained int
	Changes  []MergeChange
}

// MergeChange is one item-level merge event, ChangeType "added" or
// "updated".
type MergeChange struct {
	Key           string
	ItemName      string
	ContainerName string
	ChangeType    string
}

// Merge reconciles freshly detected orphans into the state. New keys are
// inserted unchecked with an empty note. Existing keys get only their
// display fields refreshed (container name, item name, augment), in case
// the source data changed cosmetically; Checked and Note are untouched.
// Keys present in the state but absent from orphans are retained, never
// deleted: a previously-orphaned item that now appears used still reflects
// prior user progress unless the user explicitly clears it. Merge is
// additive and idempotent.
func (s *State) Merge(orphans []orphan.Entry) MergeStats {
	var stats MergeStats
	seen := make(map[string]struct{}, len(orphans))

	for _, o := range orphans {
		key := EncodeKey(o.ContainerID, o.ItemID, o.Augment)
		seen[key] = struct{}{}

		existing, ok := s.Entries[key]
		if !ok {
			s.Entries[key] = Entry{
				ContainerID:   o.ContainerID,
				ContainerName: o.ContainerName,
				ItemName:      o.Name,
				Augment:       o.Augment,
			}
			stats.Added++
			stats.Changes = append(stats.Changes, MergeChange{Key: key, ItemName: o.Name, ContainerName: o.ContainerName, ChangeType: "added"})
			continue
		}

		if existing.ContainerName != o.ContainerName || existing.ItemName != o.Name || existing.Augment != o.Augment {
			existing.ContainerName = o.ContainerName
			existing.ItemName = o.Name
			existing.Augment = o.Augment
			s.Entries[key] = existing
			stats.Updated++
			stats.Changes = append(stats.Changes, MergeChange{Key: key, ItemName: o.Name, ContainerName: o.ContainerName, ChangeType: "updated"})
		}
	}

	for key := range s.Entries {
		if _, ok := seen[key]; !ok {
			stats.Retained++
		}
	}
	return stats
}

// SetChecked marks an entry done or not done.
func (s *State) SetChecked(key string, checked bool) error {
	e, ok := s.Entries[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	e.Checked = checked
	s.Entries[key] = e
	return nil
}

// SetNote replaces an entry's note.
func (s *State) SetNote(key, note string) error {
	e, ok := s.Entries[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	e.Note = note
	s.Entries[key] = e
	return nil
}

// CheckedCount returns how many entries are done.
func (s *State) CheckedCount() int {
	n := 0
	for _, e := range s.Entries {
		if e.Checked {
			n++
		}
	}
	return n
}

// Keyed pairs an entry with its identity key for ordered traversal.
type Keyed struct {
	Key string
	Entry
}

// SortedEntries returns the entries ordered by container_id ascending, then
// normalized item name ascending: the same law the detector orders its
// output by. Keys break remaining ties so the order is total.
func (s *State) SortedEntries() []Keyed {
	out := make([]Keyed, 0, len(s.Entries))
	for k, e := range s.Entries {
		out = append(out, Keyed{Key: k, Entry: e})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContainerID != out[j].ContainerID {
			return out[i].ContainerID < out[j].ContainerID
		}
		ni, nj := itemname.Normalize(out[i].ItemName), itemname.Normalize(out[j].ItemName)
		if ni != nj {
			return ni < nj
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// DisplayName renders the entry with its augment suffix truncated for
// layout, matching the orphan report.
func (e Entry) DisplayName() string {
	if e.Augment == "" {
		return e.ItemName
	}
	aug := e.Augment
	if r := []rune(aug); len(r) > 60 {
		aug = string(r[:60]) + "..."
	}
	return e.ItemName + " [" + aug + "]"
}
