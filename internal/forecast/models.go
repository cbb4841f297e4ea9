package forecast

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Display and base unit names recorded on every snapshot.
const (
	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"
	UnitKph        = "kph"
	UnitMph        = "mph"
)

// Alert fetch status recorded in SourceMeta.
const (
	AlertsStatusOK          = "ok"
	AlertsStatusUnavailable = "unavailable"
)

// Location represents a logical place for which we track forecasts.
type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
	Source    string  `json:"source,omitempty"`
}

// NewLocation builds a Location with its canonical id.
func NewLocation(name string, lat, lon float64, source string) Location {
	return Location{
		ID:        LocationID(lat, lon),
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		Source:    source,
	}
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	if l.ID != "" {
		return l.ID
	}
	return LocationID(l.Latitude, l.Longitude)
}

// LocationID formats coordinates at four decimal places (~11m).
func LocationID(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// CoordinateLabel is the display name used when no place name is known.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("Lat %s, Lon %s", FormatCoordinate(lat), FormatCoordinate(lon))
}

// FormatCoordinate rounds to four decimals without trailing zeros.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}

var latLonPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)$`)

// ParseLatLon parses "lat, lon" input. ok is false for anything else,
// including coordinates outside the valid ranges.
func ParseLatLon(input string) (lat, lon float64, ok bool) {
	m := latLonPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// ProviderIdentity names the upstream a part of the snapshot came from.
type ProviderIdentity struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Providers pairs the forecast and alerts sources of a snapshot.
type Providers struct {
	Forecast ProviderIdentity `json:"forecast"`
	Alerts   ProviderIdentity `json:"alerts"`
}

// Units records the display units in effect when the snapshot was captured.
// Stored values are always in the base units.
type Units struct {
	DisplayTemperature string `json:"displayTemperature"`
	DisplayWind        string `json:"displayWind"`
	BaseTemperature    string `json:"baseTemperature"`
	BaseWind           string `json:"baseWind"`
}

// DefaultUnits returns metric display and base units.
func DefaultUnits() Units {
	return Units{
		DisplayTemperature: UnitCelsius,
		DisplayWind:        UnitKph,
		BaseTemperature:    UnitCelsius,
		BaseWind:           UnitKph,
	}
}

// SourceMeta carries upstream bookkeeping that is not compared.
type SourceMeta struct {
	Timezone         string `json:"timezone,omitempty"`
	GenerationTimeMs Number `json:"generationTimeMs"`
	ModelRunTime     string `json:"modelRunTime,omitempty"`
	AlertsStatus     string `json:"alertsStatus,omitempty"`
}

// Current is the reading at fetch time.
type Current struct {
	Time              string `json:"time,omitempty"`
	TemperatureC      Number `json:"temperatureC"`
	WindKph           Number `json:"windKph"`
	PrecipProbability Number `json:"precipProbability"`
	PrecipMm          Number `json:"precipMm"`
	WeatherCode       Number `json:"weatherCode"`
	ConditionLabel    string `json:"conditionLabel,omitempty"`
	ConditionIcon     string `json:"conditionIcon,omitempty"`
}

// Alert is one active weather warning. ID is stable across fetches.
type Alert struct {
	ID        string `json:"id"`
	Event     string `json:"event,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Certainty string `json:"certainty,omitempty"`
	Urgency   string `json:"urgency,omitempty"`
	Headline  string `json:"headline,omitempty"`
	Effective string `json:"effective,omitempty"`
	Expires   string `json:"expires,omitempty"`
}

// Normalized is the provider-independent forecast content of a snapshot.
type Normalized struct {
	Current Current     `json:"current"`
	Hourly  []HourlyRow `json:"hourly"`
	Daily   []DailyRow  `json:"daily"`
	Alerts  []Alert     `json:"alerts"`
}

// Snapshot is one complete forecast fetch for a location. Snapshots are
// immutable once stored.
type Snapshot struct {
	ID         string     `json:"id"`
	Location   Location   `json:"location"`
	FetchedAt  time.Time  `json:"fetchedAt"` // always UTC, see UnmarshalJSON
	Provider   Providers  `json:"provider"`
	Units      Units      `json:"units"`
	SourceMeta SourceMeta `json:"sourceMeta"`
	Normalized Normalized `json:"normalized"`
}
