package cli

import (
	"fmt"

	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/config"
	"github.com/i474232898/forecast-drift/internal/mq"
	"github.com/i474232898/forecast-drift/internal/store"
	"github.com/i474232898/forecast-drift/internal/timefmt"
	"github.com/i474232898/forecast-drift/internal/weather"
	"github.com/i474232898/forecast-drift/internal/weather/providers"
)

// app bundles the long-lived collaborators built from configuration.
type app struct {
	cfg     *config.AppConfig
	service *weather.Service
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			common.Log.Warnf("shutdown: %v", err)
		}
	}
}

func formatterFor(cfg *config.AppConfig) timefmt.Formatter {
	return timefmt.New(cfg.TimeFormat, cfg.Timezone)
}

func openStore(cfg *config.AppConfig) (weather.Store, func() error, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.SQLitePath, cfg.RetentionLimit, cfg.StoreMaxAge)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		common.Log.WithField("path", cfg.SQLitePath).Info("using sqlite snapshot store")
		return db, db.Close, nil
	default:
		return store.NewMemoryStore(cfg.RetentionLimit, cfg.StoreMaxAge), nil, nil
	}
}

func newApp(cfg *config.AppConfig) (*app, error) {
	a := &app{cfg: cfg}

	snapshots, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	// Shared retrying client for outbound provider calls.
	client := providers.NewHTTPClient(providers.DefaultClientConfig(cfg.HTTPTimeout))
	openMeteo := providers.NewOpenMeteoProvider(client)
	nws := providers.NewNWSProvider(client)

	a.service = weather.NewService(snapshots, weather.Providers{
		Forecast: openMeteo,
		Alerts:   nws,
		Geocoder: openMeteo,
		Labels:   nws,
	}, weather.Settings{
		Mode:      cfg.ComparisonMode,
		Units:     weather.Units{Temperature: cfg.DisplayTemperature, Wind: cfg.DisplayWind},
		Formatter: formatterFor(cfg),
	})

	if len(cfg.KafkaBrokers) > 0 {
		publisher := mq.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.service.SetPublisher(publisher)
		a.closers = append(a.closers, publisher.Close)
		common.Log.WithField("topic", cfg.KafkaTopic).Info("publishing diff events to kafka")
	}
	return a, nil
}
