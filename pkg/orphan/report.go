package orphan

import (
	"fmt"
	"sort"
	"strings"
)

// ReportMeta names the inputs a report was generated from.
type ReportMeta struct {
	InventoryFile string
	ScriptFiles   []string
}

// Report renders the plain-text orphan report: header, source files,
// totals, then entries grouped per container in Detect's ordering.
func Report(entries []Entry, meta ReportMeta) string {
	rule := strings.Repeat("=", 70)
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("ORPHANED INVENTORY ITEMS REPORT\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Inventory file: %s\n", meta.InventoryFile)
	fmt.Fprintf(&b, "Lua files checked: %d\n", len(meta.ScriptFiles))
	for _, f := range meta.ScriptFiles {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total orphaned items: %d\n\n", len(entries))
	b.WriteString(strings.Repeat("-", 70) + "\n\n")

	for _, group := range groupByContainer(entries) {
		fmt.Fprintf(&b, "[%s] (%d items)\n\n", strings.ToUpper(group.name), len(group.entries))
		for _, e := range group.entries {
			fmt.Fprintf(&b, "  %s\n", e.DisplayName())
		}
		b.WriteString("\n")
	}
	return b.String()
}

type containerGroup struct {
	id      int
	name    string
	entries []Entry
}

// groupByContainer splits Detect's output into per-container runs,
// preserving its ordering.
func groupByContainer(entries []Entry) []containerGroup {
	byID := make(map[int]*containerGroup)
	var order []int
	for _, e := range entries {
		g, ok := byID[e.ContainerID]
		if !ok {
			g = &containerGroup{id: e.ContainerID, name: e.ContainerName}
			byID[e.ContainerID] = g
			order = append(order, e.ContainerID)
		}
		g.entries = append(g.entries, e)
	}
	sort.Ints(order)
	out := make([]containerGroup, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
