package weather

import (
	"context"
	"time"

	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/forecast"
)

// ForecastResult is one provider's normalized forecast for a location.
type ForecastResult struct {
	Provider forecast.ProviderIdentity
	Current  forecast.Current
	Hourly   []forecast.HourlyRow
	Daily    []forecast.DailyRow
	Meta     forecast.SourceMeta
}

// AlertsResult carries active alerts. Status is "unavailable" when the
// upstream could not be reached; Alerts is then empty.
type AlertsResult struct {
	Provider forecast.ProviderIdentity
	Alerts   []forecast.Alert
	Status   string
}

// ForecastProvider abstracts the hourly/daily forecast source (e.g. Open-Meteo).
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, loc forecast.Location) (ForecastResult, error)
}

// AlertsProvider abstracts the active-alerts source. It degrades instead of failing.
type AlertsProvider interface {
	FetchAlerts(ctx context.Context, loc forecast.Location) AlertsResult
}

// Geocoder resolves free-text place names.
type Geocoder interface {
	SearchLocations(ctx context.Context, query string) ([]forecast.Location, error)
}

// LabelResolver turns coordinates into a display name, best effort.
type LabelResolver interface {
	LookupLabel(ctx context.Context, lat, lon float64) string
}

// Store is the contract the memory and SQLite snapshot stores satisfy.
// Lists are ordered newest first.
type Store interface {
	SaveSnapshot(ctx context.Context, snapshot forecast.Snapshot) error
	ListSnapshots(ctx context.Context, locationID string) ([]forecast.Snapshot, error)
	GetLatest(ctx context.Context, locationID string) (forecast.Snapshot, error)
	GetRange(ctx context.Context, locationID string, from, to time.Time) ([]forecast.Snapshot, error)
	ApplyRetention(ctx context.Context, limit int) error
}

// DiffEvent is published after every refresh that produced a comparison.
type DiffEvent struct {
	LocationID string      `json:"locationId"`
	Location   string      `json:"location"`
	SnapshotID string      `json:"snapshotId"`
	FetchedAt  time.Time   `json:"fetchedAt"`
	Diff       diff.Result `json:"diff"`
}

// Publisher ships diff events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event DiffEvent) error
}
