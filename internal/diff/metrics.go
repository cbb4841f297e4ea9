package diff

import "math"

// buildMetrics summarises ranked changes against the compared window keys.
// Window counts and the largest change are scoped to the mode's series;
// alert, meta and category counts cover every change.
func buildMetrics(compared []string, granularity Granularity, ranked []Change) Metrics {
	comparedSet := make(map[string]struct{}, len(compared))
	for _, key := range compared {
		comparedSet[key] = struct{}{}
	}

	m := Metrics{
		TotalComparedWindows: len(compared),
		Categories:           make(map[ChangeType]int),
	}

	changedKeys := make(map[string]struct{})
	var largest *Change
	for i := range ranked {
		c := &ranked[i]
		m.Categories[c.Type]++
		switch c.Granularity {
		case GranularityAlerts:
			m.AlertsChanges++
		case GranularityMeta:
			m.MetaChanges++
		}
		if c.Granularity != granularity {
			continue
		}
		if _, ok := comparedSet[c.Key]; ok {
			changedKeys[c.Key] = struct{}{}
		}
		if c.Type.Numeric() && (largest == nil || math.Abs(c.Delta) > math.Abs(largest.Delta)) {
			largest = c
		}
	}

	m.ChangedWindows = len(changedKeys)
	m.UnchangedWindows = max(0, m.TotalComparedWindows-m.ChangedWindows)
	if m.TotalComparedWindows > 0 {
		m.ChangeRate = float64(m.ChangedWindows) / float64(m.TotalComparedWindows)
	}
	if largest != nil {
		m.LargestChange = &LargestChange{
			Type:  largest.Type,
			Label: largest.Label,
			From:  largest.From,
			To:    largest.To,
			Delta: largest.Delta,
		}
	}
	return m
}

func emptyMetrics() Metrics {
	return Metrics{Categories: make(map[ChangeType]int)}
}
