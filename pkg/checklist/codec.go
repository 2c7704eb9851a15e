package checklist

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ToJSON serializes the full state. FromJSON(ToJSON(s)) == s for all valid
// states.
func (s *State) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON decodes a persisted state. The error wraps the decode failure so
// callers can tell a corrupt file from an absent one.
func FromJSON(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding checklist state: %w", err)
	}
	if s.Entries == nil {
		s.Entries = make(map[string]Entry)
	}
	return &s, nil
}

// ValidateJSON is a lenient precheck for uploaded state files: the document
// must at least carry entries and version before the strict decode runs.
func ValidateJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("state file is not valid JSON")
	}
	for _, key := range []string{"entries", "version"} {
		if !gjson.GetBytes(data, key).Exists() {
			return fmt.Errorf("state file is missing required key %q", key)
		}
	}
	return nil
}

// ToCSV renders the checklist with columns Container, Item Name, Augments,
// Checked (Yes/No) and Notes, in SortedEntries order.
func (s *State) ToCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"Container", "Item Name", "Augments", "Checked", "Notes"})
	for _, e := range s.SortedEntries() {
		checked := "No"
		if e.Checked {
			checked = "Yes"
		}
		w.Write([]string{e.ContainerName, e.ItemName, e.Augment, checked, e.Note})
	}
	w.Flush()
	return buf.Bytes()
}
