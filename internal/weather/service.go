package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/timefmt"
)

var (
	ErrNoForecastProvider  = errors.New("no forecast provider configured")
	ErrForecastUnavailable = errors.New("forecast unavailable")
	ErrLocationNotFound    = errors.New("no matching locations found")
	ErrNoGeocoder          = errors.New("location search not configured")
)

// Providers groups the upstream collaborators of a Service. Only Forecast is
// required.
type Providers struct {
	Forecast ForecastProvider
	Alerts   AlertsProvider
	Geocoder Geocoder
	Labels   LabelResolver
}

// Settings are the user preferences applied to new snapshots and comparisons.
type Settings struct {
	Mode      diff.Mode
	Units     Units
	Formatter timefmt.Formatter
}

// RefreshResult is the stored snapshot and its comparison with the previous one.
type RefreshResult struct {
	Snapshot forecast.Snapshot `json:"snapshot"`
	Diff     diff.Result       `json:"diff"`
}

// Service orchestrates fetching, persisting and comparing forecast snapshots.
type Service struct {
	store     Store
	providers Providers
	publisher Publisher
	settings  Settings
	engine    diff.Engine
	now       func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, providers Providers, settings Settings) *Service {
	if settings.Mode == "" {
		settings.Mode = diff.ModeHourly
	}
	if settings.Formatter.Format == "" {
		settings.Formatter.Format = timefmt.Format12h
	}
	return &Service{
		store:     store,
		providers: providers,
		settings:  settings,
		engine:    diff.NewEngine(settings.Formatter),
		now:       time.Now,
	}
}

// SetPublisher enables publishing of diff events after each refresh.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// Settings returns the active settings.
func (s *Service) Settings() Settings {
	return s.settings
}

// Refresh fetches forecast and alerts concurrently for loc, stores a new
// snapshot and compares it with the previous one. A forecast failure keeps
// the last good snapshot; an alerts failure only degrades the alerts list.
func (s *Service) Refresh(ctx context.Context, loc forecast.Location, mode diff.Mode) (RefreshResult, error) {
	if s.providers.Forecast == nil {
		return RefreshResult{}, ErrNoForecastProvider
	}
	if mode == "" {
		mode = s.settings.Mode
	}
	log := common.Log.WithFields(logrus.Fields{"location": loc.Key(), "mode": mode})
	log.Debug("refreshing forecast")

	var (
		wg          sync.WaitGroup
		fr          ForecastResult
		forecastErr error
		ar          AlertsResult
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		fr, forecastErr = s.providers.Forecast.FetchForecast(ctx, loc)
	}()

	if s.providers.Alerts != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ar = s.providers.Alerts.FetchAlerts(ctx, loc)
		}()
	}

	wg.Wait()

	if forecastErr != nil {
		log.WithField("provider", s.providers.Forecast.Name()).Warnf("forecast fetch failed; keeping last good snapshot: %v", forecastErr)
		return RefreshResult{}, fmt.Errorf("%w: %v", ErrForecastUnavailable, forecastErr)
	}

	snapshot := AssembleSnapshot(loc, fr, ar, s.settings.Units, s.now())
	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return RefreshResult{}, fmt.Errorf("save snapshot: %w", err)
	}

	result, err := s.Compare(ctx, snapshot.Location.Key(), mode)
	if err != nil {
		return RefreshResult{}, err
	}

	log.WithFields(logrus.Fields{
		"changes":    len(result.Changes),
		"confidence": result.Confidence.Label,
	}).Infof("forecast refreshed, score %.0f", result.Confidence.Score)

	if s.publisher != nil && result.HasBaseline {
		event := DiffEvent{
			LocationID: snapshot.Location.Key(),
			Location:   snapshot.Location.Name,
			SnapshotID: snapshot.ID,
			FetchedAt:  snapshot.FetchedAt,
			Diff:       result,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Errorf("publish diff failed: %v", err)
		}
	}

	return RefreshResult{Snapshot: snapshot, Diff: result}, nil
}

// Compare diffs the two newest stored snapshots of a location.
func (s *Service) Compare(ctx context.Context, locationID string, mode diff.Mode) (diff.Result, error) {
	snaps, err := s.store.ListSnapshots(ctx, locationID)
	if err != nil {
		return diff.Result{}, fmt.Errorf("list snapshots: %w", err)
	}
	var previous, current *forecast.Snapshot
	if len(snaps) > 0 {
		current = &snaps[0]
	}
	if len(snaps) > 1 {
		previous = &snaps[1]
	}
	return s.CompareSnapshots(previous, current, mode), nil
}

// CompareSnapshots runs the comparison engine on two arbitrary snapshots.
func (s *Service) CompareSnapshots(previous, current *forecast.Snapshot, mode diff.Mode) diff.Result {
	if mode == "" {
		mode = s.settings.Mode
	}
	return s.engine.Compare(previous, current, mode)
}

// Snapshots returns up to limit stored snapshots, newest first. limit <= 0
// returns all of them.
func (s *Service) Snapshots(ctx context.Context, locationID string, limit int) ([]forecast.Snapshot, error) {
	snaps, err := s.store.ListSnapshots(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	if snaps == nil {
		snaps = []forecast.Snapshot{}
	}
	return snaps, nil
}

// Latest delegates to the underlying store.
func (s *Service) Latest(ctx context.Context, locationID string) (forecast.Snapshot, error) {
	return s.store.GetLatest(ctx, locationID)
}

// History delegates to the underlying store.
func (s *Service) History(ctx context.Context, locationID string, from, to time.Time) ([]forecast.Snapshot, error) {
	return s.store.GetRange(ctx, locationID, from, to)
}

// ApplyRetention re-trims stored history after a retention change.
func (s *Service) ApplyRetention(ctx context.Context, limit int) error {
	return s.store.ApplyRetention(ctx, limit)
}

// SearchLocations geocodes a free-text query.
func (s *Service) SearchLocations(ctx context.Context, query string) ([]forecast.Location, error) {
	if s.providers.Geocoder == nil {
		return nil, ErrNoGeocoder
	}
	locs, err := s.providers.Geocoder.SearchLocations(ctx, query)
	if err != nil {
		return nil, err
	}
	if locs == nil {
		locs = []forecast.Location{}
	}
	return locs, nil
}

// ResolveLocation turns user input into a location. "lat, lon" input is
// labelled via the label resolver; anything else is geocoded and the first
// hit wins.
func (s *Service) ResolveLocation(ctx context.Context, input string) (forecast.Location, error) {
	if lat, lon, ok := forecast.ParseLatLon(input); ok {
		name := forecast.CoordinateLabel(lat, lon)
		if s.providers.Labels != nil {
			name = s.providers.Labels.LookupLabel(ctx, lat, lon)
		}
		return forecast.NewLocation(name, lat, lon, "manual-latlon"), nil
	}

	locs, err := s.SearchLocations(ctx, input)
	if err != nil {
		return forecast.Location{}, err
	}
	if len(locs) == 0 {
		return forecast.Location{}, ErrLocationNotFound
	}
	return locs[0], nil
}
