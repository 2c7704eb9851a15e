package orphan

import (
	"sort"

	"github.com/moghouse/gearsweep/pkg/gearswap"
	"github.com/moghouse/gearsweep/pkg/inventory"
	"github.com/moghouse/gearsweep/pkg/itemname"
)

// Entry is an inventory item in a tracked container with no reference in
// any scanned gearset.
type Entry struct {
	ContainerID   int
	ContainerName string
	ItemID        int
	Name          string
	Augment       string
	Count         int
}

// DefaultTrackedContainers returns the wardrobe container IDs. Main
// inventory is excluded: consumable stacks there would drown the output in
// noise unrelated to equipment.
func DefaultTrackedContainers() map[int]bool {
	return map[int]bool{8: true, 10: true, 11: true, 12: true, 13: true, 14: true, 15: true, 16: true}
}

// Detect returns the orphaned records among items: those in a tracked
// container whose normalized name is absent from refs. Output is ordered by
// container_id ascending, then normalized item name ascending, so callers
// can group it for display directly. Pure function.
func Detect(items []inventory.Item, refs *gearswap.ReferenceSet, tracked map[int]bool) []Entry {
	var out []Entry
	for _, it := range items {
		if !tracked[it.ContainerID] {
			continue
		}
		if refs != nil && refs.Contains(itemname.Normalize(it.Name)) {
			continue
		}
		out = append(out, Entry{
			ContainerID:   it.ContainerID,
			ContainerName: it.ContainerName,
			ItemID:        it.ItemID,
			Name:          it.Name,
			Augment:       it.Augment,
			Count:         it.Count,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ContainerID != out[j].ContainerID {
			return out[i].ContainerID < out[j].ContainerID
		}
		return itemname.Normalize(out[i].Name) < itemname.Normalize(out[j].Name)
	})
	return out
}

// DisplayName renders the entry name with its augment suffix, truncated so
// long augment strings do not wreck the layout.
func (e Entry) DisplayName() string {
	if e.Augment == "" {
		return e.Name
	}
	aug := e.Augment
	// Truncate on rune boundaries: augment strings can carry multi-byte
	// glyphs and a byte slice could split one.
	if r := []rune(aug); len(r) > 60 {
		aug = string(r[:60]) + "..."
	}
	return e.Name + " [" + aug + "]"
}
