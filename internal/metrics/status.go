package metrics

import (
	"fmt"
	"sort"
)

// StatusClass maps an HTTP status code to its bucket label ("2xx".."5xx").
// Codes outside 100..599 map to "other"; the engine rejects those before
// they reach a bucket, so the label only shows up for hand-built events.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", code/100)
}

// StatusCount is the aggregated request count for one status class.
type StatusCount struct {
	Class string `json:"class"`
	Count int64  `json:"count"`
}

// FlattenStatusCounts converts a class->count map into a sorted slice of
// StatusCount rows. Rows are sorted by descending count, then by class for
// stability.
func FlattenStatusCounts(buckets map[string]int64) []StatusCount {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusCount, 0, len(buckets))
	for class, count := range buckets {
		rows = append(rows, StatusCount{Class: class, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Class < rows[j].Class
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
