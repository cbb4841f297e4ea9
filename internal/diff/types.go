// Package diff compares two forecast snapshots and reports how the forecast
// moved: a ranked list of changes, window metrics and a confidence rating.
//
// Every function in this package is a pure transform of its inputs. Nothing
// here performs I/O or keeps state between calls.
package diff

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which series of a snapshot is compared.
type Mode string

const (
	ModeHourly Mode = "hourly"
	ModeDaily  Mode = "daily"
)

// ParseMode accepts "hourly" or "daily"; empty input means hourly.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeHourly:
		return ModeHourly, nil
	case ModeDaily:
		return ModeDaily, nil
	}
	return "", fmt.Errorf("invalid comparison mode %q; use hourly or daily", s)
}

// Granularity names the comparator that produced a change.
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
	GranularityAlerts Granularity = "alerts"
	GranularityMeta   Granularity = "meta"
)

// ChangeType classifies a change.
type ChangeType string

const (
	TypeTemperature       ChangeType = "temperature"
	TypePrecipProbability ChangeType = "precip_probability"
	TypePrecipAmount      ChangeType = "precip_amount"
	TypeWind              ChangeType = "wind"
	TypeCondition         ChangeType = "condition"
	TypeAlertsAdded       ChangeType = "alerts_added"
	TypeAlertsRemoved     ChangeType = "alerts_removed"
	TypeAlertsUpdated     ChangeType = "alerts_updated"
	TypeProvider          ChangeType = "provider"
	TypeUnits             ChangeType = "units"
)

// Numeric reports whether t is one of the four measured quantities.
func (t ChangeType) Numeric() bool {
	switch t {
	case TypeTemperature, TypePrecipProbability, TypePrecipAmount, TypeWind:
		return true
	}
	return false
}

// Change is one detected difference between two snapshots.
//
// From and To hold a float64 or nil for numeric types, and a string for
// condition, alert update, provider and units changes.
type Change struct {
	Type        ChangeType  `json:"type"`
	Granularity Granularity `json:"granularity"`
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	From        any         `json:"from"`
	To          any         `json:"to"`
	Delta       float64     `json:"delta"`
	Message     string      `json:"message"`
}

// LargestChange is the biggest numeric move in the compared series.
type LargestChange struct {
	Type  ChangeType `json:"type"`
	Label string     `json:"label"`
	From  any        `json:"from"`
	To    any        `json:"to"`
	Delta float64    `json:"delta"`
}

// Metrics summarises how much of the compared window moved.
type Metrics struct {
	TotalComparedWindows int                `json:"totalComparedWindows"`
	ChangedWindows       int                `json:"changedWindows"`
	UnchangedWindows     int                `json:"unchangedWindows"`
	ChangeRate           float64            `json:"changeRate"`
	LargestChange        *LargestChange     `json:"largestChange"`
	AlertsChanges        int                `json:"alertsChanges"`
	MetaChanges          int                `json:"metaChanges"`
	Categories           map[ChangeType]int `json:"categories"`
}

// Confidence labels.
const (
	ConfidenceUnknown = "Unknown"
	ConfidenceHigh    = "High"
	ConfidenceMedium  = "Medium"
	ConfidenceLow     = "Low"
)

// Confidence rates forecast stability. Label and Score are independent
// signals: a High label can carry a reduced score.
type Confidence struct {
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Result is the full comparison of two snapshots.
type Result struct {
	Mode             Mode       `json:"mode"`
	HasBaseline      bool       `json:"hasBaseline"`
	HasChanges       bool       `json:"hasChanges"`
	Changes          []Change   `json:"changes"`
	Summary          []Change   `json:"summary"`
	UnchangedMessage string     `json:"unchangedMessage"`
	ComparedTo       *time.Time `json:"comparedTo"`
	Confidence       Confidence `json:"confidence"`
	Metrics          Metrics    `json:"metrics"`
}
