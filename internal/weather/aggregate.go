package weather

import (
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/forecast-drift/internal/forecast"
)

// AssembleSnapshot combines a forecast and an alerts result into one
// immutable snapshot. Display units come from the caller's settings; stored
// values are always in base units.
func AssembleSnapshot(loc forecast.Location, fr ForecastResult, ar AlertsResult, units Units, fetchedAt time.Time) forecast.Snapshot {
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	if loc.ID == "" {
		loc.ID = loc.Key()
	}
	if loc.Timezone == "" {
		loc.Timezone = fr.Meta.Timezone
	}

	alerts := ar.Alerts
	if alerts == nil {
		alerts = []forecast.Alert{}
	}
	status := ar.Status
	if status == "" {
		status = forecast.AlertsStatusOK
	}

	meta := fr.Meta
	meta.AlertsStatus = status

	hourly, daily := fr.Hourly, fr.Daily
	if hourly == nil {
		hourly = []forecast.HourlyRow{}
	}
	if daily == nil {
		daily = []forecast.DailyRow{}
	}

	return forecast.Snapshot{
		ID:        uuid.NewString(),
		Location:  loc,
		FetchedAt: fetchedAt.UTC(),
		Provider: forecast.Providers{
			Forecast: fr.Provider,
			Alerts:   ar.Provider,
		},
		Units:      units.snapshotUnits(),
		SourceMeta: meta,
		Normalized: forecast.Normalized{
			Current: fr.Current,
			Hourly:  hourly,
			Daily:   daily,
			Alerts:  alerts,
		},
	}
}

// Units are the display units a user has selected.
type Units struct {
	Temperature string
	Wind        string
}

func (u Units) snapshotUnits() forecast.Units {
	out := forecast.DefaultUnits()
	if u.Temperature != "" {
		out.DisplayTemperature = u.Temperature
	}
	if u.Wind != "" {
		out.DisplayWind = u.Wind
	}
	return out
}
