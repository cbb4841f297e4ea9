package diff

import (
	"strings"
	"testing"
	"time"

	"github.com/i474232898/forecast-drift/internal/forecast"
)

type snapshotOpts struct {
	fetchedAt          string
	providerName       string
	displayTemperature string
	displayWind        string
	hourly             []forecast.HourlyRow
	daily              []forecast.DailyRow
	alerts             []forecast.Alert
}

func makeSnapshot(t *testing.T, o snapshotOpts) *forecast.Snapshot {
	t.Helper()
	fetchedAt, err := time.Parse(time.RFC3339, o.fetchedAt)
	if err != nil {
		t.Fatalf("bad fetchedAt %q: %v", o.fetchedAt, err)
	}
	if o.providerName == "" {
		o.providerName = "Open-Meteo"
	}
	if o.displayTemperature == "" {
		o.displayTemperature = forecast.UnitCelsius
	}
	if o.displayWind == "" {
		o.displayWind = forecast.UnitKph
	}
	return &forecast.Snapshot{
		ID:        "loc:" + o.fetchedAt,
		FetchedAt: fetchedAt,
		Provider: forecast.Providers{
			Forecast: forecast.ProviderIdentity{Name: o.providerName, Endpoint: "/v1/forecast", Version: "v1"},
			Alerts:   forecast.ProviderIdentity{Name: "NWS Alerts", Endpoint: "/alerts/active", Version: "v1"},
		},
		Units: forecast.Units{
			DisplayTemperature: o.displayTemperature,
			DisplayWind:        o.displayWind,
			BaseTemperature:    forecast.UnitCelsius,
			BaseWind:           forecast.UnitKph,
		},
		Normalized: forecast.Normalized{
			Hourly: o.hourly,
			Daily:  o.daily,
			Alerts: o.alerts,
		},
	}
}

func hour(time string, temp, pop, mm, wind, code float64, label string) forecast.HourlyRow {
	return forecast.HourlyRow{
		Time:              time,
		TemperatureC:      forecast.Num(temp),
		PrecipProbability: forecast.Num(pop),
		PrecipMm:          forecast.Num(mm),
		WindKph:           forecast.Num(wind),
		WeatherCode:       forecast.Num(code),
		ConditionLabel:    label,
	}
}

func day(date string, maxC, pop, mm, wind, code float64, label string) forecast.DailyRow {
	return forecast.DailyRow{
		Date:                 date,
		TempMaxC:             forecast.Num(maxC),
		PrecipProbabilityMax: forecast.Num(pop),
		PrecipMm:             forecast.Num(mm),
		WindMaxKph:           forecast.Num(wind),
		WeatherCode:          forecast.Num(code),
		ConditionLabel:       label,
	}
}

func typesOf(changes []Change) map[ChangeType]int {
	out := make(map[ChangeType]int)
	for _, c := range changes {
		out[c.Type]++
	}
	return out
}

func TestNoBaselineWithoutPrevious(t *testing.T) {
	current := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:30:00Z",
		hourly:    []forecast.HourlyRow{hour("2026-02-20T10:00:00.000Z", 8, 10, 0, 15, 1, "Mainly clear")},
	})

	for _, mode := range []Mode{ModeHourly, ModeDaily} {
		res := BuildForecastDiff(nil, current, mode)
		if res.HasBaseline || res.HasChanges {
			t.Fatalf("%s: expected no baseline and no changes, got %+v", mode, res)
		}
		if len(res.Changes) != 0 || len(res.Summary) != 0 {
			t.Fatalf("%s: expected empty changes, got %d/%d", mode, len(res.Changes), len(res.Summary))
		}
		if res.Confidence.Label != ConfidenceUnknown || res.Confidence.Score != 0 {
			t.Fatalf("%s: expected Unknown/0 confidence, got %+v", mode, res.Confidence)
		}
		if res.UnchangedMessage != "No previous snapshot to compare yet." {
			t.Fatalf("unexpected message %q", res.UnchangedMessage)
		}
		if res.ComparedTo != nil {
			t.Fatalf("expected nil comparedTo")
		}
	}
}

func TestNoBaselineWithoutCurrent(t *testing.T) {
	previous := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T09:30:00Z"})
	res := BuildForecastDiff(previous, nil, ModeHourly)
	if res.HasBaseline || res.Confidence.Label != ConfidenceUnknown {
		t.Fatalf("expected no baseline, got %+v", res)
	}
	if res.UnchangedMessage != "No current snapshot loaded." {
		t.Fatalf("unexpected message %q", res.UnchangedMessage)
	}
}

func TestHourlyChangesDetected(t *testing.T) {
	const key = "2026-02-21T15:00:00.000Z"
	previous := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:12:00Z",
		hourly:    []forecast.HourlyRow{hour(key, 10, 20, 0.2, 12, 2, "Partly cloudy")},
	})
	current := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T10:30:00Z",
		hourly:    []forecast.HourlyRow{hour(key, 7, 55, 1.7, 24, 61, "Slight rain")},
	})

	res := BuildForecastDiff(previous, current, ModeHourly)
	if !res.HasBaseline || !res.HasChanges {
		t.Fatalf("expected baseline with changes, got %+v", res)
	}
	if len(res.Changes) != 5 {
		t.Fatalf("expected 5 changes, got %d: %+v", len(res.Changes), res.Changes)
	}
	got := typesOf(res.Changes)
	for _, typ := range []ChangeType{TypeTemperature, TypePrecipProbability, TypePrecipAmount, TypeWind, TypeCondition} {
		if got[typ] != 1 {
			t.Errorf("expected one %s change, got %d", typ, got[typ])
		}
	}
	for _, c := range res.Changes {
		if c.Key != key || c.Granularity != GranularityHourly {
			t.Errorf("unexpected key/granularity %q/%q", c.Key, c.Granularity)
		}
		if !strings.HasSuffix(c.Message, "since 9:12 AM.") {
			t.Errorf("message %q should end with the previous clock", c.Message)
		}
		switch c.Type {
		case TypeTemperature:
			if c.Delta != -3 || c.From != 10.0 || c.To != 7.0 {
				t.Errorf("temperature change wrong: %+v", c)
			}
			want := "Tomorrow 3:00 PM: temperature changed 10.0C -> 7.0C since 9:12 AM."
			if c.Message != want {
				t.Errorf("message = %q, want %q", c.Message, want)
			}
		case TypeCondition:
			if c.From != "Partly cloudy" || c.To != "Slight rain" || c.Delta != 1 {
				t.Errorf("condition change wrong: %+v", c)
			}
		}
	}
}

func TestDailyChangesInDailyMode(t *testing.T) {
	previous := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:12:00Z",
		daily:     []forecast.DailyRow{day("2026-02-22", 5, 30, 0.4, 14, 3, "Overcast")},
	})
	current := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T10:30:00Z",
		daily:     []forecast.DailyRow{day("2026-02-22", 9, 70, 4.5, 28, 82, "Violent rain showers")},
	})

	res := BuildForecastDiff(previous, current, ModeDaily)
	if !res.HasChanges {
		t.Fatal("expected changes")
	}
	var daily int
	for _, c := range res.Changes {
		if c.Granularity == GranularityDaily {
			daily++
			if c.Label != "Sun, Feb 22" {
				t.Errorf("label = %q, want day label", c.Label)
			}
		}
	}
	if daily != 5 {
		t.Fatalf("expected 5 daily changes, got %d", daily)
	}

	// Hourly mode ignores the daily series.
	if res := BuildForecastDiff(previous, current, ModeHourly); res.HasChanges {
		t.Fatalf("hourly mode should not compare daily rows: %+v", res.Changes)
	}
}

func TestUnchangedForecast(t *testing.T) {
	hourly := []forecast.HourlyRow{hour("2026-02-21T15:00:00.000Z", 7, 55, 1.7, 24, 61, "Slight rain")}
	daily := []forecast.DailyRow{day("2026-02-22", 9, 70, 4.5, 28, 82, "Violent rain showers")}
	alerts := []forecast.Alert{{ID: "a", Event: "Wind Advisory", Severity: "Moderate"}}
	previous := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T09:12:00Z", hourly: hourly, daily: daily, alerts: alerts})
	current := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T10:30:00Z", hourly: hourly, daily: daily, alerts: alerts})

	for _, mode := range []Mode{ModeHourly, ModeDaily} {
		res := BuildForecastDiff(previous, current, mode)
		if res.HasChanges {
			t.Fatalf("%s: expected no changes, got %+v", mode, res.Changes)
		}
		if res.UnchangedMessage != "No forecast changes since 9:12 AM." {
			t.Fatalf("%s: unexpected message %q", mode, res.UnchangedMessage)
		}
		if res.Confidence.Label != ConfidenceHigh || res.Confidence.Score != 100 {
			t.Fatalf("%s: expected High/100, got %+v", mode, res.Confidence)
		}
		if res.Metrics.TotalComparedWindows != 1 || res.Metrics.UnchangedWindows != 1 {
			t.Fatalf("%s: unexpected metrics %+v", mode, res.Metrics)
		}
		if res.ComparedTo == nil || !res.ComparedTo.Equal(previous.FetchedAt) {
			t.Fatalf("%s: comparedTo should be the previous fetch time", mode)
		}
	}
}

func TestAlertAndMetadataChanges(t *testing.T) {
	previous := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:12:00Z",
		alerts: []forecast.Alert{{
			ID: "alert-a", Event: "Wind Advisory", Severity: "Moderate",
			Certainty: "Likely", Urgency: "Expected", Headline: "Wind Advisory in effect",
		}},
	})
	current := makeSnapshot(t, snapshotOpts{
		fetchedAt:          "2026-02-20T10:30:00Z",
		providerName:       "Different Provider",
		displayTemperature: forecast.UnitFahrenheit,
		displayWind:        forecast.UnitMph,
		alerts: []forecast.Alert{{
			ID: "alert-b", Event: "Winter Storm Watch", Severity: "Severe",
			Certainty: "Possible", Urgency: "Future", Headline: "Winter Storm Watch in effect",
		}},
	})

	res := BuildForecastDiff(previous, current, ModeHourly)
	got := typesOf(res.Changes)
	for _, typ := range []ChangeType{TypeAlertsRemoved, TypeAlertsAdded, TypeProvider, TypeUnits} {
		if got[typ] != 1 {
			t.Errorf("expected one %s change, got %d", typ, got[typ])
		}
	}
	if res.Metrics.AlertsChanges != 2 || res.Metrics.MetaChanges != 2 {
		t.Fatalf("unexpected alert/meta counts: %+v", res.Metrics)
	}
	for _, c := range res.Changes {
		if c.Type == TypeUnits && (c.From != "celsius/kph" || c.To != "fahrenheit/mph") {
			t.Errorf("units change wrong: %+v", c)
		}
		if c.Type == TypeProvider && c.Message != "Data provider changed Open-Meteo -> Different Provider since 9:12 AM." {
			t.Errorf("provider message wrong: %q", c.Message)
		}
	}
}

func TestWindowMetrics(t *testing.T) {
	previous := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:12:00Z",
		hourly: []forecast.HourlyRow{
			hour("2026-02-21T15:00:00.000Z", 10, 20, 0.2, 12, 2, "Partly cloudy"),
			hour("2026-02-21T16:00:00.000Z", 10, 20, 0.2, 12, 2, "Partly cloudy"),
		},
	})
	current := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T10:30:00Z",
		hourly: []forecast.HourlyRow{
			hour("2026-02-21T15:00:00.000Z", 13, 40, 1.0, 20, 61, "Slight rain"),
			hour("2026-02-21T16:00:00.000Z", 10, 20, 0.2, 12, 2, "Partly cloudy"),
		},
	})

	m := BuildForecastDiff(previous, current, ModeHourly).Metrics
	if m.TotalComparedWindows != 2 || m.ChangedWindows != 1 || m.UnchangedWindows != 1 {
		t.Fatalf("unexpected window counts: %+v", m)
	}
	if m.ChangeRate != 0.5 {
		t.Fatalf("changeRate = %v, want 0.5", m.ChangeRate)
	}
	if m.LargestChange == nil || m.LargestChange.Type != TypePrecipProbability || m.LargestChange.Delta != 20 {
		t.Fatalf("unexpected largest change: %+v", m.LargestChange)
	}
	if m.Categories[TypeCondition] != 1 || m.Categories[TypeTemperature] != 1 {
		t.Fatalf("unexpected categories: %+v", m.Categories)
	}
}

func TestInnerJoinIgnoresUnmatchedRows(t *testing.T) {
	previous := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:12:00Z",
		hourly: []forecast.HourlyRow{
			hour("2026-02-20T10:00:00Z", 1, 0, 0, 0, 0, "Clear sky"),
			hour("2026-02-20T11:00:00Z", 5, 0, 0, 0, 0, "Clear sky"),
		},
	})
	current := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T10:30:00Z",
		hourly: []forecast.HourlyRow{
			hour("2026-02-20T11:00:00Z", 5, 0, 0, 0, 0, "Clear sky"),
			hour("2026-02-20T12:00:00Z", 30, 90, 9, 80, 95, "Thunderstorm"),
		},
	})

	res := BuildForecastDiff(previous, current, ModeHourly)
	if res.HasChanges {
		t.Fatalf("rows on one side only must not produce changes: %+v", res.Changes)
	}
	if res.Metrics.TotalComparedWindows != 1 {
		t.Fatalf("expected 1 compared window, got %d", res.Metrics.TotalComparedWindows)
	}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name    string
		from    float64
		to      float64
		changed bool
	}{
		{"exactly threshold", 0, 0.01, false},
		{"below threshold", 5, 5.005, false},
		{"above threshold", 0, 0.0101, true},
		{"negative move above threshold", 1, 0.98, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := makeSnapshot(t, snapshotOpts{
				fetchedAt: "2026-02-20T09:00:00Z",
				hourly:    []forecast.HourlyRow{hour("2026-02-20T12:00:00Z", tt.from, 0, 0, 0, 0, "Clear sky")},
			})
			curr := makeSnapshot(t, snapshotOpts{
				fetchedAt: "2026-02-20T10:00:00Z",
				hourly:    []forecast.HourlyRow{hour("2026-02-20T12:00:00Z", tt.to, 0, 0, 0, 0, "Clear sky")},
			})
			res := BuildForecastDiff(prev, curr, ModeHourly)
			if res.HasChanges != tt.changed {
				t.Fatalf("changed = %v, want %v (%+v)", res.HasChanges, tt.changed, res.Changes)
			}
		})
	}
}

func TestNullValues(t *testing.T) {
	key := "2026-02-20T12:00:00Z"
	prevRow := forecast.HourlyRow{Time: key, TemperatureC: forecast.Null(), WindKph: forecast.Num(10), WeatherCode: forecast.Num(1)}
	currRow := forecast.HourlyRow{Time: key, TemperatureC: forecast.Null(), WindKph: forecast.Null(), WeatherCode: forecast.Num(1)}
	prev := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T09:00:00Z", hourly: []forecast.HourlyRow{prevRow}})
	curr := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T10:00:00Z", hourly: []forecast.HourlyRow{currRow}})

	res := BuildForecastDiff(prev, curr, ModeHourly)
	if len(res.Changes) != 1 {
		t.Fatalf("expected only the wind change, got %+v", res.Changes)
	}
	c := res.Changes[0]
	if c.Type != TypeWind || c.From != 10.0 || c.To != nil || c.Delta != -10 {
		t.Fatalf("unexpected wind change %+v", c)
	}
	if !strings.Contains(c.Message, "10.0kph -> --kph") {
		t.Fatalf("null should render as --: %q", c.Message)
	}
}

func TestConditionFallsBackToCode(t *testing.T) {
	key := "2026-02-20T12:00:00Z"
	prev := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T09:00:00Z",
		hourly: []forecast.HourlyRow{{Time: key, WeatherCode: forecast.Num(3)}}})
	curr := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T10:00:00Z",
		hourly: []forecast.HourlyRow{{Time: key, WeatherCode: forecast.Num(61)}}})

	res := BuildForecastDiff(prev, curr, ModeHourly)
	if len(res.Changes) != 1 {
		t.Fatalf("expected one condition change, got %+v", res.Changes)
	}
	c := res.Changes[0]
	if c.From != "Code 3" || c.To != "Code 61" {
		t.Fatalf("unexpected fallback labels %v -> %v", c.From, c.To)
	}
	if !strings.Contains(c.Message, `condition changed "3" -> "61"`) {
		t.Fatalf("unexpected message %q", c.Message)
	}
}

func TestDuplicateKeysLastWins(t *testing.T) {
	key := "2026-02-20T12:00:00Z"
	prev := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T09:00:00Z",
		hourly: []forecast.HourlyRow{hour(key, 1, 0, 0, 0, 0, "Clear sky"), hour(key, 5, 0, 0, 0, 0, "Clear sky")}})
	curr := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T10:00:00Z",
		hourly: []forecast.HourlyRow{hour(key, 5, 0, 0, 0, 0, "Clear sky")}})

	res := BuildForecastDiff(prev, curr, ModeHourly)
	if res.HasChanges {
		t.Fatalf("later duplicate should overwrite earlier one: %+v", res.Changes)
	}
}

func TestSummaryRanksChronologicallyThenByImpact(t *testing.T) {
	time1 := "2026-02-21T01:00:00.000Z"
	time2 := "2026-02-21T02:00:00.000Z"
	previous := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:12:00Z",
		hourly: []forecast.HourlyRow{
			hour(time1, 10, 10, 0, 10, 1, "Mainly clear"),
			hour(time2, 10, 10, 0, 10, 1, "Mainly clear"),
		},
	})
	current := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T10:30:00Z",
		hourly: []forecast.HourlyRow{
			hour(time1, 10, 40, 0, 10, 1, "Mainly clear"),
			hour(time2, 0, 10, 0, 10, 1, "Mainly clear"),
		},
	})

	res := BuildForecastDiff(previous, current, ModeHourly)
	if len(res.Summary) != 2 {
		t.Fatalf("expected 2 summary entries, got %d", len(res.Summary))
	}
	// The temperature move at time2 has the larger impact, but the earlier
	// window still sorts first.
	if res.Summary[0].Key != time1 || res.Summary[0].Type != TypePrecipProbability {
		t.Fatalf("expected earlier precip change first, got %+v", res.Summary[0])
	}
	if res.Summary[1].Key != time2 || res.Summary[1].Type != TypeTemperature {
		t.Fatalf("expected later temperature change second, got %+v", res.Summary[1])
	}
}

func TestSummaryCappedAtTwelve(t *testing.T) {
	var prevRows, currRows []forecast.HourlyRow
	base := time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		key := base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		prevRows = append(prevRows, hour(key, 10, 10, 0, 10, 1, "Mainly clear"))
		currRows = append(currRows, hour(key, 12, 40, 0, 10, 3, "Overcast"))
	}
	prev := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T09:00:00Z", hourly: prevRows})
	curr := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T10:00:00Z", hourly: currRows})

	res := BuildForecastDiff(prev, curr, ModeHourly)
	if len(res.Changes) != 18 {
		t.Fatalf("expected 18 changes, got %d", len(res.Changes))
	}
	if len(res.Summary) != SummarySize {
		t.Fatalf("expected summary of %d, got %d", SummarySize, len(res.Summary))
	}
	original := res.Changes[0].Message
	res.Summary[0].Message = "edited"
	if res.Changes[0].Message != original {
		t.Fatalf("summary shares storage with changes")
	}
	if res.Metrics.ChangedWindows+res.Metrics.UnchangedWindows != res.Metrics.TotalComparedWindows {
		t.Fatalf("window counts inconsistent: %+v", res.Metrics)
	}
}

func TestDeterministic(t *testing.T) {
	prev := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T09:12:00Z",
		hourly:    []forecast.HourlyRow{hour("2026-02-21T15:00:00Z", 10, 20, 0.2, 12, 2, "Partly cloudy")},
		alerts:    []forecast.Alert{{ID: "x", Event: "Fog"}, {ID: "y", Event: "Wind"}},
	})
	curr := makeSnapshot(t, snapshotOpts{
		fetchedAt: "2026-02-20T10:30:00Z",
		hourly:    []forecast.HourlyRow{hour("2026-02-21T15:00:00Z", 7, 55, 1.7, 24, 61, "Slight rain")},
		alerts:    []forecast.Alert{{ID: "z", Event: "Flood"}},
	})

	first := BuildForecastDiff(prev, curr, ModeHourly)
	for n := 0; n < 20; n++ {
		again := BuildForecastDiff(prev, curr, ModeHourly)
		if len(again.Changes) != len(first.Changes) {
			t.Fatal("change count differs between runs")
		}
		for i := range first.Changes {
			if again.Changes[i].Key != first.Changes[i].Key || again.Changes[i].Type != first.Changes[i].Type {
				t.Fatalf("order differs at %d: %+v vs %+v", i, again.Changes[i], first.Changes[i])
			}
		}
	}
}

func TestInvalidModeFallsBackToDaily(t *testing.T) {
	prev := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T09:00:00Z"})
	curr := makeSnapshot(t, snapshotOpts{fetchedAt: "2026-02-20T10:00:00Z"})
	if res := BuildForecastDiff(prev, curr, Mode("weekly")); res.Mode != ModeDaily {
		t.Fatalf("mode = %q, want daily", res.Mode)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeHourly {
		t.Fatalf("empty mode should default to hourly, got %q %v", m, err)
	}
	if m, err := ParseMode("Daily"); err != nil || m != ModeDaily {
		t.Fatalf("got %q %v", m, err)
	}
	if _, err := ParseMode("weekly"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
