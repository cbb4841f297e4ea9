package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/weather"
)

// DefaultInterval is the auto-refresh period when none is configured.
const DefaultInterval = 30 * time.Minute

const refreshTimeout = 30 * time.Second

// Refresher is the part of weather.Service the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, loc forecast.Location, mode diff.Mode) (weather.RefreshResult, error)
}

// Scheduler periodically refreshes forecasts for configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	locations []forecast.Location
	interval  time.Duration
	mode      diff.Mode
}

// New creates a new Scheduler.
func New(locations []forecast.Location, interval time.Duration, mode diff.Mode, service Refresher) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		locations: locations,
		interval:  interval,
		mode:      mode,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		common.Log.Info("scheduler: no locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = int(DefaultInterval.Minutes())
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every location concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	common.Log.Debug("scheduler: running forecast refresh job")

	var wg sync.WaitGroup
	for _, loc := range s.locations {
		wg.Add(1)
		go func(loc forecast.Location) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()

			res, err := s.service.Refresh(ctx, loc, s.mode)
			if err != nil {
				common.Log.WithField("location", loc.Key()).Errorf("scheduler: refresh failed: %v", err)
				return
			}
			common.Log.WithField("location", loc.Key()).Infof(
				"scheduler: %s confidence (%.0f), %d changes",
				res.Diff.Confidence.Label, res.Diff.Confidence.Score, len(res.Diff.Changes),
			)
		}(loc)
	}
	wg.Wait()
	common.Log.Debug("scheduler: completed forecast refresh job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
