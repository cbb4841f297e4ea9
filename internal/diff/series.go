package diff

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/timefmt"
)

// DefaultThreshold is the smallest absolute move that counts as a change.
const DefaultThreshold = 0.01

// MetricSpec configures one numeric field checked by the series comparator.
type MetricSpec struct {
	Field string
	Type  ChangeType
	Label string
	Unit  string
	// Threshold of zero means DefaultThreshold.
	Threshold float64
}

func (m MetricSpec) threshold() float64 {
	if m.Threshold == 0 {
		return DefaultThreshold
	}
	return m.Threshold
}

// SeriesConfig configures one series comparison.
type SeriesConfig struct {
	Granularity Granularity
	Metrics     []MetricSpec
	CodeField   string
}

// HourlySeries compares the hourly rows.
var HourlySeries = SeriesConfig{
	Granularity: GranularityHourly,
	Metrics: []MetricSpec{
		{Field: forecast.FieldTemperatureC, Type: TypeTemperature, Label: "temperature", Unit: "C"},
		{Field: forecast.FieldPrecipProbability, Type: TypePrecipProbability, Label: "precip chance", Unit: "%"},
		{Field: forecast.FieldPrecipMm, Type: TypePrecipAmount, Label: "precip amount", Unit: "mm"},
		{Field: forecast.FieldWindKph, Type: TypeWind, Label: "wind", Unit: "kph"},
	},
	CodeField: forecast.FieldWeatherCode,
}

// DailySeries compares the daily rows.
var DailySeries = SeriesConfig{
	Granularity: GranularityDaily,
	Metrics: []MetricSpec{
		{Field: forecast.FieldTempMaxC, Type: TypeTemperature, Label: "max temp", Unit: "C"},
		{Field: forecast.FieldPrecipProbabilityMax, Type: TypePrecipProbability, Label: "max precip chance", Unit: "%"},
		{Field: forecast.FieldPrecipMm, Type: TypePrecipAmount, Label: "precip amount", Unit: "mm"},
		{Field: forecast.FieldWindMaxKph, Type: TypeWind, Label: "max wind", Unit: "kph"},
	},
	CodeField: forecast.FieldWeatherCode,
}

// labeler renders the human-readable parts of change records.
type labeler struct {
	formatter     timefmt.Formatter
	now           time.Time
	comparedClock string
}

func (l labeler) timeLabel(g Granularity, key string) string {
	switch g {
	case GranularityHourly:
		return l.formatter.RelativeLabel(key, l.now)
	case GranularityDaily:
		return l.formatter.DayLabel(key)
	}
	return key
}

// numericChanged treats a value appearing or disappearing as a change.
func numericChanged(before, after forecast.Number, threshold float64) bool {
	if !before.Valid && !after.Valid {
		return false
	}
	if !before.Valid || !after.Valid {
		return true
	}
	return math.Abs(after.Value-before.Value) > threshold
}

func formatNumeric(n forecast.Number) string {
	if !n.Valid {
		return "--"
	}
	return strconv.FormatFloat(n.Value, 'f', 1, 64)
}

func formatCode(n forecast.Number) string {
	if !n.Valid {
		return "--"
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// indexRows maps key to row, later duplicates overwriting earlier ones, and
// returns the keys in first-seen order. Rows without a key are skipped.
func indexRows[R forecast.SeriesRow](rows []R) (map[string]R, []string) {
	byKey := make(map[string]R, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		key := row.RowKey()
		if key == "" {
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = row
	}
	return byKey, order
}

// comparedKeys returns the keys present on both sides, in current order.
func comparedKeys[R forecast.SeriesRow](previous, current []R) []string {
	prevByKey, _ := indexRows(previous)
	_, order := indexRows(current)
	keys := make([]string, 0, len(order))
	for _, key := range order {
		if _, ok := prevByKey[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// compareSeries aligns rows by key and reports metric and condition moves.
// Keys present on only one side are ignored: the forecast window shifts
// between fetches.
func compareSeries[R forecast.SeriesRow](previous, current []R, cfg SeriesConfig, l labeler) []Change {
	prevByKey, _ := indexRows(previous)
	currByKey, order := indexRows(current)

	var changes []Change
	for _, key := range order {
		before, ok := prevByKey[key]
		if !ok {
			continue
		}
		after := currByKey[key]
		label := l.timeLabel(cfg.Granularity, key)

		for _, m := range cfg.Metrics {
			from, to := before.Field(m.Field), after.Field(m.Field)
			if !numericChanged(from, to, m.threshold()) {
				continue
			}
			changes = append(changes, Change{
				Type:        m.Type,
				Granularity: cfg.Granularity,
				Key:         key,
				Label:       label,
				From:        from.Interface(),
				To:          to.Interface(),
				Delta:       to.Or(0) - from.Or(0),
				Message: fmt.Sprintf("%s: %s changed %s%s -> %s%s since %s.",
					label, m.Label, formatNumeric(from), m.Unit, formatNumeric(to), m.Unit, l.comparedClock),
			})
		}

		fromCode, toCode := before.Field(cfg.CodeField), after.Field(cfg.CodeField)
		if fromCode.Equal(toCode) {
			continue
		}
		fromLabel, toLabel := before.Condition(), after.Condition()
		fromText, toText := fromLabel, toLabel
		if fromLabel == "" {
			fromLabel = "Code " + formatCode(fromCode)
			fromText = formatCode(fromCode)
		}
		if toLabel == "" {
			toLabel = "Code " + formatCode(toCode)
			toText = formatCode(toCode)
		}
		changes = append(changes, Change{
			Type:        TypeCondition,
			Granularity: cfg.Granularity,
			Key:         key,
			Label:       label,
			From:        fromLabel,
			To:          toLabel,
			Delta:       1,
			Message:     fmt.Sprintf("%s: condition changed \"%s\" -> \"%s\" since %s.", label, fromText, toText, l.comparedClock),
		})
	}
	return changes
}
