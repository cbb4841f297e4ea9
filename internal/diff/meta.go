package diff

import (
	"fmt"

	"github.com/i474232898/forecast-drift/internal/forecast"
)

// Fixed keys for snapshot-level changes.
const (
	KeyProvider = "provider"
	KeyUnits    = "units"
)

// CompareMeta reports a change of forecast provider and a change of the
// display unit pair.
func CompareMeta(previous, current forecast.Snapshot, comparedClock string) []Change {
	var changes []Change

	prevProvider := orDefault(previous.Provider.Forecast.Name, "Unknown")
	currProvider := orDefault(current.Provider.Forecast.Name, "Unknown")
	if prevProvider != currProvider {
		changes = append(changes, Change{
			Type:        TypeProvider,
			Granularity: GranularityMeta,
			Key:         KeyProvider,
			Label:       "Data provider",
			From:        prevProvider,
			To:          currProvider,
			Delta:       1,
			Message:     fmt.Sprintf("Data provider changed %s -> %s since %s.", prevProvider, currProvider, comparedClock),
		})
	}

	prevUnits := unitPair(previous.Units)
	currUnits := unitPair(current.Units)
	if prevUnits != currUnits {
		changes = append(changes, Change{
			Type:        TypeUnits,
			Granularity: GranularityMeta,
			Key:         KeyUnits,
			Label:       "Display units",
			From:        prevUnits,
			To:          currUnits,
			Delta:       1,
			Message:     fmt.Sprintf("Display units changed %s -> %s since %s.", prevUnits, currUnits, comparedClock),
		})
	}
	return changes
}

func unitPair(u forecast.Units) string {
	return orDefault(u.DisplayTemperature, forecast.UnitCelsius) + "/" + orDefault(u.DisplayWind, forecast.UnitKph)
}
