package forecast

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		value float64
	}{
		{`12.5`, true, 12.5},
		{`-3`, true, -3},
		{`"7.25"`, true, 7.25},
		{`null`, false, 0},
		{`"abc"`, false, 0},
		{`""`, false, 0},
		{`true`, false, 0},
		{`{"x":1}`, false, 0},
		{`[1]`, false, 0},
	}
	for _, tt := range tests {
		var n Number
		if err := json.Unmarshal([]byte(tt.in), &n); err != nil {
			t.Fatalf("%s: unexpected error %v", tt.in, err)
		}
		if n.Valid != tt.valid || n.Value != tt.value {
			t.Errorf("%s: got %+v", tt.in, n)
		}
	}
}

func TestNumberMissingFieldIsNull(t *testing.T) {
	var row HourlyRow
	if err := json.Unmarshal([]byte(`{"time":"2026-02-20T10:00","temperatureC":"n/a"}`), &row); err != nil {
		t.Fatal(err)
	}
	if row.TemperatureC.Valid || row.WindKph.Valid {
		t.Fatalf("expected nulls, got %+v", row)
	}
	out, err := json.Marshal(row.TemperatureC)
	if err != nil || string(out) != "null" {
		t.Fatalf("null marshals as %s %v", out, err)
	}
}

func TestParseLatLon(t *testing.T) {
	lat, lon, ok := ParseLatLon(" 40.7128, -74.0060 ")
	if !ok || lat != 40.7128 || lon != -74.006 {
		t.Fatalf("got %v %v %v", lat, lon, ok)
	}
	for _, in := range []string{"", "Paris", "91,0", "0,181", "1;2"} {
		if _, _, ok := ParseLatLon(in); ok {
			t.Errorf("%q should not parse", in)
		}
	}
	if id := LocationID(40.71284, -74.00601); id != "40.7128,-74.0060" {
		t.Fatalf("LocationID = %q", id)
	}
	if label := CoordinateLabel(40.71284, -74.00601); label != "Lat 40.7128, Lon -74.006" {
		t.Fatalf("CoordinateLabel = %q", label)
	}
}

func TestLookupCondition(t *testing.T) {
	if got := LookupCondition(Num(61)); got.Label != "Slight rain" {
		t.Fatalf("got %+v", got)
	}
	if got := LookupCondition(Null()); got.Label != "Unknown" {
		t.Fatalf("got %+v", got)
	}
	if got := LookupCondition(Num(42)); got.Label != "Unknown" {
		t.Fatalf("got %+v", got)
	}
}

func TestRowFieldLookup(t *testing.T) {
	h := HourlyRow{Time: "t", WindKph: Num(12)}
	if h.Field(FieldWindKph).Value != 12 || h.Field("nope").Valid {
		t.Fatal("hourly field lookup broken")
	}
	d := DailyRow{Date: "d", WindMaxKph: Num(30)}
	if d.Field(FieldWindMaxKph).Value != 30 || d.Field(FieldWindKph).Valid {
		t.Fatal("daily field lookup broken")
	}
}

func TestDecodeSnapshot(t *testing.T) {
	raw := []byte(`{
		"fetchedAt": "2026-02-20T09:12:00Z",
		"provider": {"forecast": {"name": "Open-Meteo"}},
		"normalized": {
			"hourly": [{"time": "2026-02-21T15:00", "temperatureC": 10, "weatherCode": 2}],
			"daily": [],
			"alerts": [{"id": "a", "event": "Fog"}]
		}
	}`)
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Normalized.Hourly) != 1 || snap.Normalized.Hourly[0].TemperatureC.Value != 10 {
		t.Fatalf("unexpected decode %+v", snap.Normalized)
	}
}

func TestDecodeSnapshotRejectsBadShape(t *testing.T) {
	cases := map[string]string{
		"missing normalized": `{"fetchedAt": "2026-02-20T09:12:00Z"}`,
		"string metric":      `{"fetchedAt": "2026-02-20T09:12:00Z", "normalized": {"hourly": [{"time": "x", "windKph": "fast"}]}}`,
		"hourly not array":   `{"fetchedAt": "2026-02-20T09:12:00Z", "normalized": {"hourly": {}}}`,
		"bad timestamp":      `{"fetchedAt": "yesterday", "normalized": {}}`,
		"not json":           `{`,
	}
	for name, raw := range cases {
		if _, err := DecodeSnapshot([]byte(raw)); !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("%s: expected ErrInvalidSnapshot, got %v", name, err)
		}
	}
}

func TestDecodeSnapshotFetchedAtForms(t *testing.T) {
	want := time.Date(2026, 2, 20, 9, 12, 0, 0, time.UTC)
	cases := map[string]string{
		"rfc3339":      `"2026-02-20T09:12:00Z"`,
		"offset":       `"2026-02-20T03:12:00-06:00"`,
		"zoneless":     `"2026-02-20T09:12:00"`,
		"zoneless min": `"2026-02-20T09:12"`,
		"epoch millis": `1771578720000`,
	}
	for name, fetchedAt := range cases {
		raw := []byte(`{"fetchedAt": ` + fetchedAt + `, "normalized": {"hourly": [], "daily": [], "alerts": []}}`)
		snap, err := DecodeSnapshot(raw)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
			continue
		}
		if !snap.FetchedAt.Equal(want) || snap.FetchedAt.Location() != time.UTC {
			t.Errorf("%s: fetchedAt = %v, want %v", name, snap.FetchedAt, want)
		}
	}
}

func TestSnapshotFetchedAtRoundTrip(t *testing.T) {
	in := Snapshot{ID: "s1", FetchedAt: time.Date(2026, 2, 20, 9, 12, 30, 0, time.UTC)}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Snapshot
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != "s1" || !out.FetchedAt.Equal(in.FetchedAt) {
		t.Fatalf("round trip lost fields: %+v", out)
	}
}

func TestParseFetchedAt(t *testing.T) {
	if got, err := ParseFetchedAt(json.RawMessage(`null`)); err != nil || !got.IsZero() {
		t.Fatalf("null: %v %v", got, err)
	}
	for _, bad := range []string{`"yesterday"`, `true`, `{}`} {
		if _, err := ParseFetchedAt(json.RawMessage(bad)); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}
