package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/weather"
)

const (
	openMeteoForecastURL  = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	searchResultLimit = 7
)

var openMeteoIdentity = forecast.ProviderIdentity{
	Name:     "Open-Meteo",
	Endpoint: "/v1/forecast",
	Version:  "v1",
}

// OpenMeteoProvider fetches hourly/daily forecasts and geocodes place names.
// It implements weather.ForecastProvider and weather.Geocoder.
type OpenMeteoProvider struct {
	name         string
	forecastURL  string
	geocodingURL string
	client       *retryablehttp.Client
	circuit      *gobreaker.CircuitBreaker
	geoCircuit   *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *retryablehttp.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:         "openmeteo",
		forecastURL:  openMeteoForecastURL,
		geocodingURL: openMeteoGeocodingURL,
		client:       client,
		circuit:      newBreaker("openmeteo"),
		geoCircuit:   newBreaker("openmeteo-geocoding"),
	}
}

// WithBaseURLs points the provider at other hosts, e.g. a test server.
func (p *OpenMeteoProvider) WithBaseURLs(forecastURL, geocodingURL string) *OpenMeteoProvider {
	if forecastURL != "" {
		p.forecastURL = forecastURL
	}
	if geocodingURL != "" {
		p.geocodingURL = geocodingURL
	}
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, loc forecast.Location) (weather.ForecastResult, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	values.Set("current", "temperature_2m,weather_code,wind_speed_10m,precipitation_probability,precipitation")
	values.Set("hourly", "temperature_2m,precipitation_probability,precipitation,weather_code,wind_speed_10m,wind_gusts_10m")
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max,precipitation_sum,wind_speed_10m_max")
	values.Set("forecast_days", "7")
	values.Set("timezone", "auto")
	values.Set("temperature_unit", "celsius")
	values.Set("wind_speed_unit", "kmh")
	values.Set("precipitation_unit", "mm")

	body, err := getJSON(ctx, p.client, p.circuit, p.forecastURL+"?"+values.Encode(), "application/json")
	if err != nil {
		return weather.ForecastResult{}, fmt.Errorf("openmeteo forecast: %w", err)
	}
	return NormalizeOpenMeteo(body), nil
}

// NormalizeOpenMeteo maps an Open-Meteo forecast payload onto the normalized
// shape. Missing arrays yield empty series; bad values become null.
func NormalizeOpenMeteo(body []byte) weather.ForecastResult {
	payload := gjson.ParseBytes(body)
	return weather.ForecastResult{
		Provider: openMeteoIdentity,
		Current:  normalizeCurrent(payload.Get("current")),
		Hourly:   normalizeHourly(payload.Get("hourly")),
		Daily:    normalizeDaily(payload.Get("daily")),
		Meta: forecast.SourceMeta{
			Timezone:         stringOf(payload.Get("timezone")),
			GenerationTimeMs: numberOf(payload.Get("generationtime_ms")),
			ModelRunTime:     stringOf(payload.Get("model_run")),
		},
	}
}

// column returns element i of the named parallel array.
func column(series gjson.Result, field string, i int) forecast.Number {
	return numberOf(series.Get(field + "." + strconv.Itoa(i)))
}

func normalizeHourly(hourly gjson.Result) []forecast.HourlyRow {
	times := hourly.Get("time").Array()
	rows := make([]forecast.HourlyRow, 0, len(times))
	for i, t := range times {
		code := column(hourly, "weather_code", i)
		cond := forecast.LookupCondition(code)
		rows = append(rows, forecast.HourlyRow{
			Time:              t.String(),
			TemperatureC:      column(hourly, "temperature_2m", i),
			PrecipProbability: column(hourly, "precipitation_probability", i),
			PrecipMm:          column(hourly, "precipitation", i),
			WindKph:           column(hourly, "wind_speed_10m", i),
			WindGustKph:       column(hourly, "wind_gusts_10m", i),
			WeatherCode:       code,
			ConditionLabel:    cond.Label,
			ConditionIcon:     cond.Icon,
		})
	}
	return rows
}

func normalizeDaily(daily gjson.Result) []forecast.DailyRow {
	dates := daily.Get("time").Array()
	rows := make([]forecast.DailyRow, 0, len(dates))
	for i, d := range dates {
		code := column(daily, "weather_code", i)
		cond := forecast.LookupCondition(code)
		rows = append(rows, forecast.DailyRow{
			Date:                 d.String(),
			TempMaxC:             column(daily, "temperature_2m_max", i),
			TempMinC:             column(daily, "temperature_2m_min", i),
			PrecipProbabilityMax: column(daily, "precipitation_probability_max", i),
			PrecipMm:             column(daily, "precipitation_sum", i),
			WindMaxKph:           column(daily, "wind_speed_10m_max", i),
			WeatherCode:          code,
			ConditionLabel:       cond.Label,
			ConditionIcon:        cond.Icon,
		})
	}
	return rows
}

func normalizeCurrent(current gjson.Result) forecast.Current {
	code := numberOf(current.Get("weather_code"))
	cond := forecast.LookupCondition(code)
	return forecast.Current{
		Time:              stringOf(current.Get("time")),
		TemperatureC:      numberOf(current.Get("temperature_2m")),
		WindKph:           numberOf(current.Get("wind_speed_10m")),
		PrecipProbability: numberOf(current.Get("precipitation_probability")),
		PrecipMm:          numberOf(current.Get("precipitation")),
		WeatherCode:       code,
		ConditionLabel:    cond.Label,
		ConditionIcon:     cond.Icon,
	}
}

// SearchLocations geocodes a free-text query. Blank queries return no results.
func (p *OpenMeteoProvider) SearchLocations(ctx context.Context, query string) ([]forecast.Location, error) {
	clean := strings.Join(strings.Fields(query), " ")
	if clean == "" {
		return nil, nil
	}

	values := url.Values{}
	values.Set("name", clean)
	values.Set("count", strconv.Itoa(searchResultLimit))
	values.Set("language", "en")
	values.Set("format", "json")

	body, err := getJSON(ctx, p.client, p.geoCircuit, p.geocodingURL+"?"+values.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("openmeteo geocoding: %w", err)
	}

	results := gjson.GetBytes(body, "results").Array()
	locs := make([]forecast.Location, 0, len(results))
	for _, item := range results {
		if len(locs) == searchResultLimit {
			break
		}
		lat, lon := numberOf(item.Get("latitude")), numberOf(item.Get("longitude"))
		if !lat.Valid || !lon.Valid {
			continue
		}
		name := common.JoinNonEmpty(", ",
			stringOf(item.Get("name")),
			stringOf(item.Get("admin1")),
			stringOf(item.Get("country")),
		)
		loc := forecast.NewLocation(name, lat.Value, lon.Value, "open-meteo-geocoding")
		loc.Timezone = stringOf(item.Get("timezone"))
		locs = append(locs, loc)
	}
	return locs, nil
}
