package forecast

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a nullable numeric reading. The zero value is null.
//
// Decoding never fails: JSON null, absent fields, booleans, objects and
// strings that do not parse as a finite float all decode to an invalid Number.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number holding v. NaN and infinities are treated as null.
func Num(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

// Null returns an invalid Number.
func Null() Number {
	return Number{}
}

// ParseNumber converts a loosely typed string into a Number.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return Num(f)
}

// Or returns the value, or def when the number is null.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Interface returns the value as float64, or nil when null.
func (n Number) Interface() any {
	if !n.Valid {
		return nil
	}
	return n.Value
}

// Equal reports whether both numbers are null or hold the same value.
func (n Number) Equal(o Number) bool {
	if n.Valid != o.Valid {
		return false
	}
	return !n.Valid || n.Value == o.Value
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*n = ParseNumber(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return nil
		}
		*n = Num(f)
	}
	return nil
}
