package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/weather"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func parseMessageJSON[T any](msg kafka.Message) (T, error) {
	var payload T
	err := json.Unmarshal(msg.Value, &payload)
	return payload, err
}

func testEvent() weather.DiffEvent {
	return weather.DiffEvent{
		LocationID: "30.2672,-97.7431",
		Location:   "Austin, TX",
		SnapshotID: "snap-1",
		FetchedAt:  time.Date(2026, 2, 20, 9, 12, 0, 0, time.UTC),
		Diff: diff.Result{
			Mode:        diff.ModeHourly,
			HasBaseline: true,
			Confidence:  diff.Confidence{Label: diff.ConfidenceHigh, Score: 86},
		},
	}
}

func TestBuildMessageRoundTrip(t *testing.T) {
	msg, err := BuildMessage(testEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(msg.Key) != "30.2672,-97.7431" {
		t.Fatalf("key = %s", msg.Key)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[1].Value) != "High" {
		t.Fatalf("headers = %+v", msg.Headers)
	}
	got, err := parseMessageJSON[weather.DiffEvent](msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.SnapshotID != "snap-1" || got.Diff.Confidence.Score != 86 || !got.FetchedAt.Equal(testEvent().FetchedAt) {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	if err := p.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	w.err = errors.New("broker down")
	if err := p.Publish(context.Background(), testEvent()); !errors.Is(err, w.err) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}
