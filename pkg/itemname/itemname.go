package itemname

import "strings"

// Normalize applies the canonical form used for item name comparison
// everywhere in gearsweep: surrounding whitespace is trimmed, the name is
// lowercased, and internal whitespace runs collapse to a single space.
// Two raw strings that normalize identically refer to the same item.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
