package timetable

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFarePerKm is the fare rate used when none is configured.
const DefaultFarePerKm = 2.0

const minutesPerDay = 24 * 60

// ParseError reports a clock time that is not "HH:MM".
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse clock time %q: %s", e.Input, e.Reason)
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, &ParseError{Input: s, Reason: "want HH:MM"}
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, &ParseError{Input: s, Reason: "hour is not an integer"}
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, &ParseError{Input: s, Reason: "minute is not an integer"}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, &ParseError{Input: s, Reason: "out of range"}
	}
	return h*60 + m, nil
}

// TripDuration returns the minutes between dep and arr, wrapping past
// midnight. It returns 0 when either time does not parse.
func TripDuration(dep, arr string) int {
	d, err := ParseClock(dep)
	if err != nil {
		return 0
	}
	a, err := ParseClock(arr)
	if err != nil {
		return 0
	}
	dur := a - d
	if dur < 0 {
		dur += minutesPerDay
	}
	return dur
}

// BreakMinutes is the rest stop length for a trip of the given distance.
func BreakMinutes(distanceKm int) int {
	switch {
	case distanceKm <= 200:
		return 10
	case distanceKm <= 400:
		return 20
	case distanceKm <= 700:
		return 30
	default:
		return 45
	}
}

func Fare(distanceKm int, perKm float64) float64 {
	return float64(distanceKm) * perKm
}

// FormatDuration renders minutes as "4h 05m".
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
