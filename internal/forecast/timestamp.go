package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/i474232898/forecast-drift/internal/timefmt"
)

// ParseFetchedAt reads a fetch timestamp: an RFC 3339 string, a zoneless ISO
// string (read as UTC) or a number of epoch milliseconds. null is the zero time.
func ParseFetchedAt(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("fetchedAt: %w", err)
		}
		t, ok := timefmt.ParseKey(s, time.UTC)
		if !ok {
			return time.Time{}, fmt.Errorf("fetchedAt: unrecognized timestamp %q", s)
		}
		return t.UTC(), nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("fetchedAt: %w", err)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// UnmarshalJSON decodes a snapshot, accepting every fetchedAt form
// ParseFetchedAt does. Snapshots always marshal fetchedAt as RFC 3339.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type snapshotFields Snapshot
	aux := struct {
		*snapshotFields
		FetchedAt json.RawMessage `json:"fetchedAt"`
	}{snapshotFields: (*snapshotFields)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t, err := ParseFetchedAt(aux.FetchedAt)
	if err != nil {
		return err
	}
	s.FetchedAt = t
	return nil
}
