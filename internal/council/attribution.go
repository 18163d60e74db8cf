package council

import (
	"strconv"
	"strings"
)

// ParseAttribution extracts the trailing attribution block from a
// synthesis response. Each line after the marker has the form
// "name | weight | reason". resolve maps the free-text name back to a
// participant ID; unresolvable names keep the raw name so the credit is
// not silently lost. Parse failure is non-fatal: the function returns
// nil entries and the untouched text, and the turn remains valid
// without attribution.
func ParseAttribution(raw string, resolve func(name string) (string, bool)) ([]AttributionEntry, string) {
	idx := lastMarkerIndex(raw, attributionMarker)
	if idx < 0 {
		return nil, raw
	}
	block := raw[idx+len(attributionMarker):]
	var entries []AttributionEntry
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		weight, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || name == "" {
			continue
		}
		entry := AttributionEntry{Participant: name, Weight: weight}
		if resolve != nil {
			if id, ok := resolve(name); ok {
				entry.Participant = id
			}
		}
		if len(parts) == 3 {
			entry.Reason = strings.TrimSpace(parts[2])
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, raw
	}
	return entries, strings.TrimSpace(raw[:idx])
}
