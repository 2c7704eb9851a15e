package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/moghouse/gearsweep/internal/utils"
)

// Item is one inventory row from a Windower findAll-style CSV export.
// Immutable once loaded.
type Item struct {
	ContainerID   int
	ContainerName string
	ItemID        int
	Name          string
	Augment       string
	Count         int
}

// ParseCSV reads inventory rows. The header row is required and must carry
// container_id, container_name, item_id and item_name; augments and count
// are optional. Rows that fail to parse are skipped and counted, never
// fatal; a missing required column is a shape error and aborts the parse.
// Returns the items, the number of skipped rows, and an error.
func ParseCSV(r io.Reader) ([]Item, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"container_id", "container_name", "item_id", "item_name"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("inventory CSV is missing required column %q", required)
		}
	}

	var items []Item
	skipped := 0
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			utils.Log.Warnf("Skipping inventory line %d: %s", line, err)
			skipped++
			continue
		}

		item, err := rowToItem(record, cols)
		if err != nil {
			utils.Log.Warnf("Skipping inventory line %d: %s", line, err)
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// ParseFile is a convenience wrapper over ParseCSV.
func ParseFile(path string) ([]Item, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return ParseCSV(f)
}

func rowToItem(record []string, cols map[string]int) (Item, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	containerID, err := strconv.Atoi(field("container_id"))
	if err != nil {
		return Item{}, fmt.Errorf("bad container_id %q", field("container_id"))
	}
	itemID, err := strconv.Atoi(field("item_id"))
	if err != nil {
		return Item{}, fmt.Errorf("bad item_id %q", field("item_id"))
	}
	name := field("item_name")
	if name == "" {
		return Item{}, fmt.Errorf("empty item_name")
	}

	count := 1
	if raw := field("count"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 1 {
			return Item{}, fmt.Errorf("bad count %q", raw)
		}
	}

	return Item{
		ContainerID:   containerID,
		ContainerName: field("container_name"),
		ItemID:        itemID,
		Name:          name,
		Augment:       field("augments"),
		Count:         count,
	}, nil
}
