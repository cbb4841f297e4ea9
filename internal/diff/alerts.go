package diff

import (
	"fmt"

	"github.com/i474232898/forecast-drift/internal/forecast"
)

func indexAlerts(alerts []forecast.Alert) (map[string]forecast.Alert, []string) {
	byID := make(map[string]forecast.Alert, len(alerts))
	order := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if a.ID == "" {
			continue
		}
		if _, seen := byID[a.ID]; !seen {
			order = append(order, a.ID)
		}
		byID[a.ID] = a
	}
	return byID, order
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// CompareAlerts aligns two alert sets by id. Alerts only in current are
// added, alerts only in previous are removed, and alerts in both whose
// severity, certainty, urgency or headline moved are updated.
func CompareAlerts(previous, current []forecast.Alert, comparedClock string) []Change {
	prevByID, prevOrder := indexAlerts(previous)
	currByID, currOrder := indexAlerts(current)

	var changes []Change
	for _, id := range currOrder {
		cur := currByID[id]
		prev, existed := prevByID[id]
		if !existed {
			changes = append(changes, Change{
				Type:        TypeAlertsAdded,
				Granularity: GranularityAlerts,
				Key:         id,
				Label:       orDefault(cur.Event, "Alert"),
				From:        0.0,
				To:          1.0,
				Delta:       1,
				Message: fmt.Sprintf("Alert added: %s (%s) since %s.",
					orDefault(cur.Event, "Unknown"), orDefault(cur.Severity, "Unknown"), comparedClock),
			})
			continue
		}
		if prev.Severity == cur.Severity &&
			prev.Certainty == cur.Certainty &&
			prev.Urgency == cur.Urgency &&
			prev.Headline == cur.Headline {
			continue
		}
		changes = append(changes, Change{
			Type:        TypeAlertsUpdated,
			Granularity: GranularityAlerts,
			Key:         id,
			Label:       orDefault(cur.Event, "Alert"),
			From:        orDefault(prev.Severity, "Unknown"),
			To:          orDefault(cur.Severity, "Unknown"),
			Delta:       1,
			Message: fmt.Sprintf("Alert updated: %s changed severity/context since %s.",
				orDefault(cur.Event, "Unknown"), comparedClock),
		})
	}

	for _, id := range prevOrder {
		if _, still := currByID[id]; still {
			continue
		}
		prev := prevByID[id]
		changes = append(changes, Change{
			Type:        TypeAlertsRemoved,
			Granularity: GranularityAlerts,
			Key:         id,
			Label:       orDefault(prev.Event, "Alert"),
			From:        1.0,
			To:          0.0,
			Delta:       -1,
			Message:     fmt.Sprintf("Alert cleared: %s since %s.", orDefault(prev.Event, "Unknown"), comparedClock),
		})
	}
	return changes
}
