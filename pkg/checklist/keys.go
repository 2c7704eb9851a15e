package checklist

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeKey builds the identity key that tracks an item's checklist
// progress across re-analysis runs: "<container_id>|<item_id>|<augment>".
// The augment is the raw string from the inventory export, so the key stays
// byte-stable as long as the export is unchanged.
func EncodeKey(containerID, itemID int, augment string) string {
	return fmt.Sprintf("%d|%d|%s", containerID, itemID, augment)
}

// ParseKey is the inverse of EncodeKey. The augment part may contain
// anything, including further pipes.
func ParseKey(key string) (containerID, itemID int, augment string, err error) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("malformed identity key %q", key)
	}
	containerID, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed identity key %q: bad container id", key)
	}
	itemID, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("malformed identity key %q: bad item id", key)
	}
	return containerID, itemID, parts[2], nil
}
