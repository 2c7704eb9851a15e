package orphan

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/moghouse/gearsweep/pkg/gearswap"
	"github.com/moghouse/gearsweep/pkg/inventory"
)

func refSet(names ...string) *gearswap.ReferenceSet {
	s := gearswap.NewReferenceSet()
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func TestDetectUntrackedContainerExcluded(t *testing.T) {
	items := []inventory.Item{
		{ContainerID: 0, ContainerName: "inventory", ItemID: 1, Name: "Potion", Count: 1},
	}
	got := Detect(items, refSet(), DefaultTrackedContainers())
	if len(got) != 0 {
		t.Fatalf("untracked container must never appear in the output, got %#v", got)
	}
}

func TestDetectMembership(t *testing.T) {
	items := []inventory.Item{
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 7, Name: "Empty Urn", Count: 1},
	}

	got := Detect(items, refSet(), DefaultTrackedContainers())
	if len(got) != 1 || got[0].Name != "Empty Urn" {
		t.Fatalf("expected exactly one orphan for Empty Urn, got %#v", got)
	}

	got = Detect(items, refSet("empty urn"), DefaultTrackedContainers())
	if len(got) != 0 {
		t.Fatalf("referenced item must not be orphaned, got %#v", got)
	}
}

func TestDetectMatchesThroughNormalization(t *testing.T) {
	items := []inventory.Item{
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 7, Name: "  EMPTY   Urn ", Count: 1},
	}
	got := Detect(items, refSet("empty urn"), DefaultTrackedContainers())
	if len(got) != 0 {
		t.Fatalf("name comparison must go through normalization, got %#v", got)
	}
}

func TestDetectOrdering(t *testing.T) {
	items := []inventory.Item{
		{ContainerID: 10, ContainerName: "wardrobe2", ItemID: 3, Name: "Aurgelmir Orb", Count: 1},
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 2, Name: "Empty Urn", Count: 1},
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 1, Name: "Beetle Ring", Count: 1},
	}
	got := Detect(items, refSet(), DefaultTrackedContainers())

	var order []string
	for _, e := range got {
		order = append(order, e.Name)
	}
	want := []string{"Beetle Ring", "Empty Urn", "Aurgelmir Orb"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("unexpected ordering.\nwant: %#v\ngot:  %#v", want, order)
	}
}

// The §2 scenario: two wardrobe items, one main-inventory item, one of the
// wardrobe items referenced by a script.
func TestDetectEndToEnd(t *testing.T) {
	refs, _ := gearswap.Scan([]gearswap.ScriptFile{
		{Name: "war.lua", Text: `sets.engaged = { head="Nyame Helm" }`},
	}, gearswap.ScanOptions{})

	items := []inventory.Item{
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 1, Name: "Nyame Helm", Count: 1},
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 2, Name: "Empty Urn", Count: 1},
		{ContainerID: 0, ContainerName: "inventory", ItemID: 3, Name: "Potion", Count: 1},
	}

	got := Detect(items, refs, DefaultTrackedContainers())
	want := []Entry{
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 2, Name: "Empty Urn", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected orphans.\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestDetectIsPure(t *testing.T) {
	items := []inventory.Item{
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 2, Name: "Empty Urn", Count: 1},
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 1, Name: "Beetle Ring", Count: 1},
	}
	before := make([]inventory.Item, len(items))
	copy(before, items)

	first := Detect(items, refSet(), DefaultTrackedContainers())
	second := Detect(items, refSet(), DefaultTrackedContainers())

	if !reflect.DeepEqual(items, before) {
		t.Fatal("Detect mutated its input")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Detect is not deterministic.\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

func TestDisplayNameTruncatesAugments(t *testing.T) {
	long := strings.Repeat("STR+5,", 20)
	e := Entry{Name: "Odyssean Helm", Augment: long}
	got := e.DisplayName()
	if !strings.HasPrefix(got, "Odyssean Helm [") || !strings.HasSuffix(got, "...]") {
		t.Fatalf("unexpected display name %q", got)
	}
	if len(got) > len("Odyssean Helm [")+63+1 {
		t.Fatalf("augment suffix not truncated: %q", got)
	}
}

func TestDisplayNameTruncationKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("é", 61)
	e := Entry{Name: "Odyssean Helm", Augment: long}
	got := e.DisplayName()
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	want := "Odyssean Helm [" + strings.Repeat("é", 60) + "...]"
	if got != want {
		t.Fatalf("unexpected display name.\nwant: %q\ngot:  %q", want, got)
	}
}

func TestReport(t *testing.T) {
	entries := []Entry{
		{ContainerID: 8, ContainerName: "wardrobe", ItemID: 2, Name: "Empty Urn", Count: 1},
		{ContainerID: 10, ContainerName: "wardrobe2", ItemID: 3, Name: "Beetle Ring", Augment: "DEF+1", Count: 1},
	}
	report := Report(entries, ReportMeta{
		InventoryFile: "inventory.csv",
		ScriptFiles:   []string{"war.lua", "blm.lua"},
	})

	for _, want := range []string{
		"ORPHANED INVENTORY ITEMS REPORT",
		"Inventory file: inventory.csv",
		"Lua files checked: 2",
		"  - war.lua",
		"Total orphaned items: 2",
		"[WARDROBE] (1 items)",
		"  Empty Urn",
		"[WARDROBE2] (1 items)",
		"  Beetle Ring [DEF+1]",
	} {
		if !strings.Contains(report, want) {
			t.Fatalf("report is missing %q:\n%s", want, report)
		}
	}
}
