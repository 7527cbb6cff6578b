// Package gamemap holds the static map catalog merged into server items.
package gamemap

import "strings"

// Info is one entry of the upstream map catalog.
type Info struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Image string `json:"image"`
}

// LeafName extracts the final path segment of a map id for presentation.
// The canonical mapId keeps the full raw path so catalog joins stay stable;
// only display code should use the leaf.
func LeafName(mapID string) string {
	mapID = strings.TrimRight(strings.TrimSpace(mapID), "/")
	if mapID == "" {
		return ""
	}
	if idx := strings.LastIndex(mapID, "/"); idx >= 0 {
		return mapID[idx+1:]
	}
	return mapID
}
