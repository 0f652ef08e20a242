package detect

import (
	"math"
	"sort"
	"time"

	"argus/core"
)

// timestamp renders an evidence timestamp; RFC 3339 UTC is the wire
// contract for everything analysts see.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// round2 rounds to two decimal places for evidence ratios.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// uniqueSorted deduplicates and sorts a list of strings, dropping empties.
func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	sort.Strings(result)
	return result
}

// sortedKeys returns map keys in sorted order so findings are emitted
// deterministically regardless of map iteration order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// eventIDs extracts the IDs of a slice of events for evidence.
func eventIDs(events []core.Event) []int64 {
	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
