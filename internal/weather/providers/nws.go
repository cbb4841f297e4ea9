package providers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/weather"
)

const (
	nwsAlertsURL = "https://api.weather.gov/alerts/active"
	nwsPointsURL = "https://api.weather.gov/points"
	geoJSON      = "application/geo+json"
)

var nwsIdentity = forecast.ProviderIdentity{
	Name:     "NWS Alerts",
	Endpoint: "/alerts/active",
	Version:  "v1",
}

// NWSProvider reads active alerts and point metadata from api.weather.gov.
// It implements weather.AlertsProvider and weather.LabelResolver.
type NWSProvider struct {
	alertsURL     string
	pointsURL     string
	client        *retryablehttp.Client
	circuit       *gobreaker.CircuitBreaker
	pointsCircuit *gobreaker.CircuitBreaker
}

func NewNWSProvider(client *retryablehttp.Client) *NWSProvider {
	return &NWSProvider{
		alertsURL:     nwsAlertsURL,
		pointsURL:     nwsPointsURL,
		client:        client,
		circuit:       newBreaker("nws-alerts"),
		pointsCircuit: newBreaker("nws-points"),
	}
}

// WithBaseURLs points the provider at other hosts, e.g. a test server.
func (p *NWSProvider) WithBaseURLs(alertsURL, pointsURL string) *NWSProvider {
	if alertsURL != "" {
		p.alertsURL = alertsURL
	}
	if pointsURL != "" {
		p.pointsURL = pointsURL
	}
	return p
}

// FetchAlerts never fails: upstream errors yield an empty list with status
// "unavailable".
func (p *NWSProvider) FetchAlerts(ctx context.Context, loc forecast.Location) weather.AlertsResult {
	values := url.Values{}
	values.Set("point", forecast.FormatCoordinate(loc.Latitude)+","+forecast.FormatCoordinate(loc.Longitude))

	body, err := getJSON(ctx, p.client, p.circuit, p.alertsURL+"?"+values.Encode(), geoJSON)
	if err != nil {
		common.Log.WithField("location", loc.Key()).Warnf("nws alerts unavailable: %v", err)
		return weather.AlertsResult{
			Provider: nwsIdentity,
			Alerts:   []forecast.Alert{},
			Status:   forecast.AlertsStatusUnavailable,
		}
	}
	return weather.AlertsResult{
		Provider: nwsIdentity,
		Alerts:   NormalizeAlerts(body),
		Status:   forecast.AlertsStatusOK,
	}
}

// NormalizeAlerts maps a GeoJSON feature collection onto alerts, filling
// placeholders for missing properties.
func NormalizeAlerts(body []byte) []forecast.Alert {
	features := gjson.GetBytes(body, "features").Array()
	alerts := make([]forecast.Alert, 0, len(features))
	for _, feature := range features {
		props := feature.Get("properties")
		event := stringOf(props.Get("event"))
		alerts = append(alerts, forecast.Alert{
			ID:        common.FirstNonEmpty(stringOf(props.Get("id")), stringOf(feature.Get("id")), "unknown-alert"),
			Event:     common.FirstNonEmpty(event, "Unknown event"),
			Severity:  common.FirstNonEmpty(stringOf(props.Get("severity")), "Unknown"),
			Certainty: common.FirstNonEmpty(stringOf(props.Get("certainty")), "Unknown"),
			Urgency:   common.FirstNonEmpty(stringOf(props.Get("urgency")), "Unknown"),
			Headline:  common.FirstNonEmpty(stringOf(props.Get("headline")), event, "No headline"),
			Effective: stringOf(props.Get("effective")),
			Expires:   stringOf(props.Get("expires")),
		})
	}
	return alerts
}

// LookupLabel returns "City, ST" for US points and a coordinate label otherwise.
func (p *NWSProvider) LookupLabel(ctx context.Context, lat, lon float64) string {
	fallback := forecast.CoordinateLabel(lat, lon)
	body, err := getJSON(ctx, p.client, p.pointsCircuit, fmt.Sprintf("%s/%s,%s", p.pointsURL, forecast.FormatCoordinate(lat), forecast.FormatCoordinate(lon)), geoJSON)
	if err != nil {
		common.Log.Debugf("nws points lookup failed for %s: %v", fallback, err)
		return fallback
	}
	place := gjson.GetBytes(body, "properties.relativeLocation.properties")
	city, state := stringOf(place.Get("city")), stringOf(place.Get("state"))
	if city == "" || state == "" {
		return fallback
	}
	return city + ", " + state
}
