package diff

import (
	"slices"
	"time"

	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/timefmt"
)

// Engine holds display preferences for change labels and messages. They
// never affect which changes are detected or how they are scored.
type Engine struct {
	Formatter timefmt.Formatter
}

// NewEngine returns an Engine that renders labels with f.
func NewEngine(f timefmt.Formatter) Engine {
	return Engine{Formatter: f}
}

// BuildForecastDiff compares two snapshots with 12-hour UTC labels.
// A nil snapshot on either side yields a result without a baseline.
func BuildForecastDiff(previous, current *forecast.Snapshot, mode Mode) Result {
	return NewEngine(timefmt.New(timefmt.Format12h, time.UTC)).Compare(previous, current, mode)
}

// Compare builds the ranked diff of current against previous.
func (e Engine) Compare(previous, current *forecast.Snapshot, mode Mode) Result {
	if mode != ModeHourly {
		mode = ModeDaily
	}
	if current == nil {
		return noBaseline(mode, "No current snapshot loaded.")
	}
	if previous == nil {
		return noBaseline(mode, "No previous snapshot to compare yet.")
	}

	comparedClock := e.Formatter.Clock(previous.FetchedAt)
	now := current.FetchedAt
	if now.IsZero() {
		now = time.Now()
	}
	l := labeler{formatter: e.Formatter, now: now, comparedClock: comparedClock}

	prevModel, currModel := previous.Normalized, current.Normalized

	var (
		changes     []Change
		compared    []string
		granularity Granularity
	)
	if mode == ModeHourly {
		granularity = GranularityHourly
		changes = compareSeries(prevModel.Hourly, currModel.Hourly, HourlySeries, l)
		compared = comparedKeys(prevModel.Hourly, currModel.Hourly)
	} else {
		granularity = GranularityDaily
		changes = compareSeries(prevModel.Daily, currModel.Daily, DailySeries, l)
		compared = comparedKeys(prevModel.Daily, currModel.Daily)
	}
	changes = append(changes, CompareAlerts(prevModel.Alerts, currModel.Alerts, comparedClock)...)
	changes = append(changes, CompareMeta(*previous, *current, comparedClock)...)

	ranked := SortByImpact(changes, e.Formatter.Location)
	if ranked == nil {
		ranked = []Change{}
	}
	summary := slices.Clone(ranked[:min(SummarySize, len(ranked))])

	hasChanges := len(ranked) > 0
	unchanged := ""
	if !hasChanges {
		unchanged = "No forecast changes since " + comparedClock + "."
	}

	var comparedTo *time.Time
	if !previous.FetchedAt.IsZero() {
		t := previous.FetchedAt
		comparedTo = &t
	}

	return Result{
		Mode:             mode,
		HasBaseline:      true,
		HasChanges:       hasChanges,
		Changes:          ranked,
		Summary:          summary,
		UnchangedMessage: unchanged,
		ComparedTo:       comparedTo,
		Confidence:       CalculateConfidence(changes, true),
		Metrics:          buildMetrics(compared, granularity, ranked),
	}
}

func noBaseline(mode Mode, message string) Result {
	return Result{
		Mode:             mode,
		HasBaseline:      false,
		HasChanges:       false,
		Changes:          []Change{},
		Summary:          []Change{},
		UnchangedMessage: message,
		Confidence:       CalculateConfidence(nil, false),
		Metrics:          emptyMetrics(),
	}
}
