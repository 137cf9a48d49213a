// Package status classifies temperature readings into display categories.
package status

import (
	"math"
	"strconv"
	"strings"
)

// Key identifies a temperature category
type Key string

const (
	KeyNoData      Key = "none"
	KeyCold        Key = "cold"
	KeyNormal      Key = "normal"
	KeyAboveTarget Key = "above"
	KeyCriticalHot Key = "critical"
)

// Alert is the highlight level a category carries on the dashboard
type Alert int

const (
	AlertNone Alert = iota
	AlertWarning
	AlertCritical
)

// Category thresholds in °F. Each bound is the inclusive lower edge of the next category.
const (
	NormalMinF      = 70.0
	AboveTargetMinF = 81.0
	CriticalMinF    = 90.0
)

// Status is the classification of one reading
type Status struct {
	Key   Key
	Label string
	Alert Alert
}

var (
	NoData      = Status{Key: KeyNoData, Label: "No Data", Alert: AlertNone}
	Cold        = Status{Key: KeyCold, Label: "Cold", Alert: AlertCritical}
	Normal      = Status{Key: KeyNormal, Label: "Normal", Alert: AlertNone}
	AboveTarget = Status{Key: KeyAboveTarget, Label: "Above Target", Alert: AlertWarning}
	CriticalHot = Status{Key: KeyCriticalHot, Label: "Critical Hot", Alert: AlertCritical}
)

// All lists the categories a reading can fall into, coldest first
var All = []Status{Cold, Normal, AboveTarget, CriticalHot}

// IsAlert reports whether the category should glow as critical
func (s Status) IsAlert() bool {
	return s.Alert == AlertCritical
}

// Classify maps a reading to its category. A nil reading means no log yet.
func Classify(tempF *float64) Status {
	if tempF == nil {
		return NoData
	}
	return ClassifyValue(*tempF)
}

// ClassifyValue maps a numeric reading to its category; NaN and ±Inf are NoData
func ClassifyValue(v float64) Status {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return NoData
	case v < NormalMinF:
		return Cold
	case v < AboveTargetMinF:
		return Normal
	case v < CriticalMinF:
		return AboveTarget
	default:
		return CriticalHot
	}
}

// ClassifyString coerces free-form input; anything non-numeric is NoData
func ClassifyString(s string) Status {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoData
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NoData
	}
	return ClassifyValue(v)
}

// ParseKey resolves a filter key such as "cold" or "critical"
func ParseKey(s string) (Key, bool) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KeyNoData, KeyCold, KeyNormal, KeyAboveTarget, KeyCriticalHot:
		return k, true
	}
	return "", false
}
