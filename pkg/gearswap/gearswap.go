package gearswap

import (
	"regexp"
	"sort"
	"strings"

	"github.com/moghouse/gearsweep/pkg/itemname"
)

// DefaultCommentMarker is the lua line comment marker.
const DefaultCommentMarker = "--"

// ScriptFile is one configuration script to scan. Callers read the bytes
// (disk, upload, URL); the scanner only ever sees text.
type ScriptFile struct {
	Name string
	Text string
}

// ScanOptions carries the configurable parts of the scan: which keys count
// as equipment slots and what starts a line comment.
type ScanOptions struct {
	SlotNames     []string
	CommentMarker string
}

// DefaultSlotNames returns the standard GearSwap equipment slot keys,
// including both naming conventions for ears and rings.
func DefaultSlotNames() []string {
	return []string{
		"main", "sub", "range", "ammo",
		"head", "neck", "body", "hands", "back", "waist", "legs", "feet",
		"left ear", "right ear", "ear1", "ear2",
		"left ring", "right ring", "ring1", "ring2",
	}
}

// FileStat is per-file scan diagnostics. A file with zero gearsets is
// informational only, never an error.
type FileStat struct {
	Name     string
	Gearsets int
	Refs     int
}

// ReferenceSet holds the normalized item names referenced anywhere in the
// scanned batch. Membership-only semantics.
type ReferenceSet struct {
	names map[string]struct{}
}

func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{names: make(map[string]struct{})}
}

// Add inserts an already-normalized name.
func (s *ReferenceSet) Add(normalized string) {
	if normalized == "" {
		return
	}
	s.names[normalized] = struct{}{}
}

// Contains reports membership of an already-normalized name.
func (s *ReferenceSet) Contains(normalized string) bool {
	_, ok := s.names[normalized]
	return ok
}

func (s *ReferenceSet) Len() int {
	return len(s.names)
}

// Names returns the set contents sorted, for deterministic output.
func (s *ReferenceSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// A slot key may be a bare lua identifier (left_ear=) or a quoted bracket
// key (["left ear"]=). The value is either a quoted item name or a table
// whose first string literal is the item name.
var (
	keyToken = `([A-Za-z_][A-Za-z0-9_]*|\[\s*"[^"]+"\s*\]|\[\s*'[^']+'\s*\])`

	reAssignDouble = regexp.MustCompile(keyToken + `\s*=\s*"([^"]*)"`)
	reAssignSingle = regexp.MustCompile(keyToken + `\s*=\s*'([^']*)'`)
	// The table match stops at the opening brace: capturing the body here
	// would let an enclosing non-slot assignment (sets.engaged = { ...)
	// consume the slot token nested inside it.
	reAssignTable = regexp.MustCompile(keyToken + `\s*=\s*\{`)

	reGearsetHeader = regexp.MustCompile(`\bsets[\w.\[\]"' ]*=\s*\{`)
)

// Scan extracts the set of item names referenced as equipment slot values
// across the whole batch. Slot-assignment matching runs on the raw text, so
// commented-out gear still counts as referenced; comment stripping is
// applied only to gearset-header detection, where comment text would
// otherwise be misread as live tables. Malformed text is never an error:
// lines that match nothing contribute nothing.
func Scan(files []ScriptFile, opts ScanOptions) (*ReferenceSet, []FileStat) {
	slotNames := opts.SlotNames
	if len(slotNames) == 0 {
		slotNames = DefaultSlotNames()
	}
	marker := opts.CommentMarker
	if marker == "" {
		marker = DefaultCommentMarker
	}

	slots := make(map[string]struct{}, len(slotNames))
	for _, s := range slotNames {
		slots[canonicalKey(s)] = struct{}{}
	}

	refs := NewReferenceSet()
	stats := make([]FileStat, 0, len(files))

	for _, f := range files {
		stat := FileStat{Name: f.Name}
		seen := make(map[string]struct{})

		add := func(name string) {
			normalized := itemname.Normalize(name)
			if isPlaceholder(normalized) {
				return
			}
			refs.Add(normalized)
			seen[normalized] = struct{}{}
		}

		for _, line := range strings.Split(f.Text, "\n") {
			if reGearsetHeader.MatchString(stripComment(line, marker)) {
				stat.Gearsets++
			}
			for _, name := range slotValues(line, slots) {
				add(name)
			}
		}
		// Table form: head={ name="Nyame Helm", augments={...} }. Only the
		// first string literal is the item name; later literals are
		// augments. Augmented blocks routinely span lines, so this pass
		// runs over the whole file rather than line by line.
		for _, m := range reAssignTable.FindAllStringSubmatchIndex(f.Text, -1) {
			if _, ok := slots[canonicalKey(f.Text[m[2]:m[3]])]; !ok {
				continue
			}
			if name, ok := firstLiteralInTable(f.Text[m[1]:]); ok {
				add(name)
			}
		}

		stat.Refs = len(seen)
		stats = append(stats, stat)
	}
	return refs, stats
}

// slotValues returns the raw item names assigned to recognized slot keys on
// one line.
func slotValues(line string, slots map[string]struct{}) []string {
	var out []string

	for _, m := range reAssignDouble.FindAllStringSubmatch(line, -1) {
		if _, ok := slots[canonicalKey(m[1])]; ok {
			out = append(out, m[2])
		}
	}
	for _, m := range reAssignSingle.FindAllStringSubmatch(line, -1) {
		if _, ok := slots[canonicalKey(m[1])]; ok {
			out = append(out, m[2])
		}
	}
	return out
}

// firstLiteralInTable returns the first string literal inside a table body.
// s starts just past the opening brace; the walk tracks brace depth so a
// literal is never taken from beyond the table's own closing brace.
func firstLiteralInTable(s string) (string, bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return "", false
			}
		case '"', '\'':
			for j := i + 1; j < len(s); j++ {
				if s[j] == '\\' {
					j++
					continue
				}
				if s[j] == c {
					return s[i+1 : j], true
				}
			}
			return "", false
		}
	}
	return "", false
}

// canonicalKey maps a matched key token to the form slot names are compared
// in: brackets and quotes stripped, lowercased, underscores as spaces.
func canonicalKey(tok string) string {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "[") {
		tok = strings.TrimSuffix(strings.TrimPrefix(tok, "["), "]")
		tok = strings.Trim(strings.TrimSpace(tok), `"'`)
	}
	tok = strings.ReplaceAll(strings.ToLower(tok), "_", " ")
	return strings.Join(strings.Fields(tok), " ")
}

func isPlaceholder(normalized string) bool {
	return normalized == "" || normalized == "empty" || normalized == "none"
}

// stripComment removes everything from the comment marker to end of line.
// The marker only counts when it occurs outside a string literal, so quote
// state is tracked across the line.
func stripComment(line, marker string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(line[i:], marker):
			return line[:i]
		}
	}
	return line
}
