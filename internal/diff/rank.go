package diff

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/i474232898/forecast-drift/internal/timefmt"
)

// SummarySize is the number of ranked changes kept in Result.Summary.
const SummarySize = 12

// Impact weighs a change for ranking and confidence. It is never stored.
func Impact(c Change) float64 {
	delta := math.Abs(c.Delta)
	switch c.Type {
	case TypeTemperature:
		return math.Min(4, delta/2)
	case TypePrecipProbability:
		return math.Min(4, delta/15)
	case TypePrecipAmount:
		return math.Min(4, delta/2)
	case TypeWind:
		return math.Min(4, delta/8)
	case TypeCondition:
		return 2.3
	case TypeAlertsAdded, TypeAlertsRemoved, TypeAlertsUpdated:
		return 3
	case TypeProvider, TypeUnits:
		return 1.5
	}
	return 1
}

// keyTime orders a change by its key. Keys that are not timestamps, such
// as alert ids or meta keys, sort as time 0.
func keyTime(key string, loc *time.Location) int64 {
	t, ok := timefmt.ParseKey(key, loc)
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// SortByImpact returns a ranked copy of changes. It runs two stable sorts:
// by impact descending, then by key time ascending. The result is
// chronological, with impact only ordering changes that share a timestamp.
func SortByImpact(changes []Change, loc *time.Location) []Change {
	sorted := slices.Clone(changes)
	slices.SortStableFunc(sorted, func(a, b Change) int {
		return cmp.Compare(Impact(b), Impact(a))
	})
	slices.SortStableFunc(sorted, func(a, b Change) int {
		return cmp.Compare(keyTime(a.Key, loc), keyTime(b.Key, loc))
	})
	return sorted
}
