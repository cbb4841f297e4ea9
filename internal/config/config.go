package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/store"
	"github.com/i474232898/forecast-drift/internal/timefmt"
)

// DefaultRetention is the number of snapshots kept per location.
const DefaultRetention = 10

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// FetchInterval controls how often configured locations are refreshed.
	FetchInterval time.Duration `validate:"min=1m"`
	HTTPTimeout   time.Duration `validate:"min=1s"`

	// Locations tracked by the scheduler.
	Locations []forecast.Location

	// Snapshot retention.
	RetentionLimit int           `validate:"min=3,max=50"`
	StoreMaxAge    time.Duration `validate:"min=0"` // 0 = unlimited
	StoreBackend   string        `validate:"oneof=memory sqlite"`
	SQLitePath     string        `validate:"required_if=StoreBackend sqlite"`

	TimeFormat         timefmt.Format `validate:"oneof=12h 24h"`
	TimezoneName       string         `validate:"required"`
	Timezone           *time.Location `validate:"-"`
	DisplayTemperature string         `validate:"oneof=celsius fahrenheit"`
	DisplayWind        string         `validate:"oneof=kph mph"`
	ComparisonMode     diff.Mode      `validate:"oneof=hourly daily"`

	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	LogLevel string
}

var validate = validator.New()

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("fetch_interval", "30m")
	v.SetDefault("http_timeout", "15s")
	v.SetDefault("locations", "")
	v.SetDefault("retention_limit", DefaultRetention)
	v.SetDefault("store_max_age", "0")
	v.SetDefault("store_backend", "memory")
	v.SetDefault("sqlite_path", "~/.forecast-drift/snapshots.sqlite")
	v.SetDefault("time_format", string(timefmt.Format12h))
	v.SetDefault("timezone", "UTC")
	v.SetDefault("display_temperature", forecast.UnitCelsius)
	v.SetDefault("display_wind", forecast.UnitKph)
	v.SetDefault("comparison_mode", string(diff.ModeHourly))
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "forecast.diffs")
	v.SetDefault("log_level", "info")
}

// Load reads configuration from .env, the environment and any config file
// already attached to v. A nil v uses a fresh viper instance.
func Load(v *viper.Viper) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		common.Log.Debugf("no .env file loaded: %v", err)
	}
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &AppConfig{
		Port:               strings.TrimSpace(v.GetString("port")),
		RetentionLimit:     store.ClampRetention(v.GetInt("retention_limit")),
		StoreBackend:       strings.ToLower(strings.TrimSpace(v.GetString("store_backend"))),
		TimezoneName:       strings.TrimSpace(v.GetString("timezone")),
		DisplayTemperature: strings.ToLower(strings.TrimSpace(v.GetString("display_temperature"))),
		DisplayWind:        strings.ToLower(strings.TrimSpace(v.GetString("display_wind"))),
		KafkaBrokers:       splitList(v.GetString("kafka_brokers")),
		KafkaTopic:         strings.TrimSpace(v.GetString("kafka_topic")),
		LogLevel:           v.GetString("log_level"),
	}

	var err error
	if cfg.FetchInterval, err = durationKey(v, "fetch_interval"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = durationKey(v, "http_timeout"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = durationKey(v, "store_max_age"); err != nil {
		return nil, err
	}

	if cfg.SQLitePath, err = homedir.Expand(strings.TrimSpace(v.GetString("sqlite_path"))); err != nil {
		return nil, fmt.Errorf("invalid SQLITE_PATH: %w", err)
	}

	// Enum values are parsed loosely here and checked by the validator below.
	cfg.TimeFormat = timefmt.Format(strings.ToLower(strings.TrimSpace(v.GetString("time_format"))))
	cfg.ComparisonMode = diff.Mode(strings.ToLower(strings.TrimSpace(v.GetString("comparison_mode"))))

	if cfg.Timezone, err = time.LoadLocation(cfg.TimezoneName); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if cfg.Locations, err = ParseLocations(v.GetString("locations")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ParseLocations parses "name|lat,lon;lat,lon". Entries without a name are
// labelled with their coordinates.
func ParseLocations(raw string) ([]forecast.Location, error) {
	var locs []forecast.Location
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, coords := "", entry
		if i := strings.LastIndex(entry, "|"); i >= 0 {
			name, coords = strings.TrimSpace(entry[:i]), entry[i+1:]
		}
		lat, lon, ok := forecast.ParseLatLon(coords)
		if !ok {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: want name|lat,lon", entry)
		}
		if name == "" {
			name = forecast.CoordinateLabel(lat, lon)
		}
		locs = append(locs, forecast.NewLocation(name, lat, lon, "config"))
	}
	return locs, nil
}

func durationKey(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
