package transit

import (
	"fmt"
	"strconv"
	"strings"

	"movemate/internal/timetable"
)

// Route is a scheduled bus trip. Seat occupancy is owned by the inventory
// store, not by the route value.
type Route struct {
	ID            int
	DepartureCity string
	ArrivalCity   string
	ViaStop       string
	DepartureTime string // HH:MM
	ArrivalTime   string // HH:MM, may be past midnight
	Capacity      int
	DistanceKm    int
	Fare          float64 // per passenger, derived at seed time
	BreakMinutes  int     // derived at seed time
}

// Summary is the one-line route description used in booking records.
func (r Route) Summary() string {
	return fmt.Sprintf("%s -> %s (Bus %d)", r.DepartureCity, r.ArrivalCity, r.ID)
}

func (r Route) DurationMinutes() int {
	return timetable.TripDuration(r.DepartureTime, r.ArrivalTime)
}

const (
	UnknownName   = "Unknown"
	UnknownGender = "U"
)

type Passenger struct {
	Name   string
	Age    int
	Gender string
}

// NewPassenger builds a passenger from raw input, falling back to
// UnknownName, age 0 and UnknownGender for missing or unparsable fields.
func NewPassenger(name, age, gender string) Passenger {
	p := Passenger{
		Name:   strings.TrimSpace(name),
		Gender: strings.TrimSpace(gender),
	}
	if p.Name == "" {
		p.Name = UnknownName
	}
	if p.Gender == "" {
		p.Gender = UnknownGender
	}
	if n, err := strconv.Atoi(strings.TrimSpace(age)); err == nil && n >= 0 {
		p.Age = n
	}
	return p
}

// Entry is a persisted occupancy counter for one route.
type Entry struct {
	RouteID   int
	Occupancy int
}
