package catalog

import (
	"errors"
	"fmt"

	"movemate/internal/timetable"
	"movemate/internal/transit"
)

var ErrRouteNotFound = errors.New("route not found")

// Catalog is an ordered, id-keyed set of routes. It is read-only after
// construction.
type Catalog struct {
	routes []transit.Route
	byID   map[int]int // route id -> index in routes
}

func New(routes ...transit.Route) (*Catalog, error) {
	c := &Catalog{
		routes: make([]transit.Route, 0, len(routes)),
		byID:   make(map[int]int, len(routes)),
	}
	for _, r := range routes {
		if r.ID <= 0 {
			return nil, fmt.Errorf("route id %d: must be positive", r.ID)
		}
		if r.Capacity <= 0 {
			return nil, fmt.Errorf("route %d: capacity must be positive", r.ID)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("route %d: duplicate id", r.ID)
		}
		c.byID[r.ID] = len(c.routes)
		c.routes = append(c.routes, r)
	}
	return c, nil
}

func (c *Catalog) Find(id int) (transit.Route, error) {
	i, ok := c.byID[id]
	if !ok {
		return transit.Route{}, fmt.Errorf("route %d: %w", id, ErrRouteNotFound)
	}
	return c.routes[i], nil
}

// Between returns the routes whose endpoints match exactly (case-sensitive).
func (c *Catalog) Between(dep, arr string) []transit.Route {
	var out []transit.Route
	for _, r := range c.routes {
		if r.DepartureCity == dep && r.ArrivalCity == arr {
			out = append(out, r)
		}
	}
	return out
}

// All returns the routes in catalog order.
func (c *Catalog) All() []transit.Route {
	out := make([]transit.Route, len(c.routes))
	copy(out, c.routes)
	return out
}

func (c *Catalog) Len() int { return len(c.routes) }

// Destinations lists arrival cities reachable from origin, in catalog order,
// without duplicates.
func (c *Catalog) Destinations(origin string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.routes {
		if r.DepartureCity != origin || seen[r.ArrivalCity] {
			continue
		}
		seen[r.ArrivalCity] = true
		out = append(out, r.ArrivalCity)
	}
	return out
}

// Origin is the departure city of every seeded route.
const Origin = "New Delhi"

type SeedOptions struct {
	BaseID    int
	Capacity  int
	FarePerKm float64
}

func DefaultSeedOptions() SeedOptions {
	return SeedOptions{BaseID: 101, Capacity: 30, FarePerKm: timetable.DefaultFarePerKm}
}

type seedRoute struct {
	arrival, via, dep, arr string
	km                     int
}

var seedRoutes = []seedRoute{
	{"Agra", "Mathura", "06:00", "10:00", 230},
	{"Jaipur", "Gurugram", "08:30", "14:00", 280},
	{"Kanpur", "Aligarh", "09:15", "18:00", 440},
	{"Varanasi", "Prayagraj", "17:00", "07:00", 820},
	{"Chandigarh", "Panipat", "07:00", "12:00", 250},
}

// Seed builds the fixed route set departing from Origin. Fare and break
// time are derived here once.
func Seed(opts SeedOptions) *Catalog {
	def := DefaultSeedOptions()
	if opts.BaseID <= 0 {
		opts.BaseID = def.BaseID
	}
	if opts.Capacity <= 0 {
		opts.Capacity = def.Capacity
	}
	if opts.FarePerKm <= 0 {
		opts.FarePerKm = def.FarePerKm
	}
	routes := make([]transit.Route, 0, len(seedRoutes))
	for i, s := range seedRoutes {
		routes = append(routes, transit.Route{
			ID:            opts.BaseID + i,
			DepartureCity: Origin,
			ArrivalCity:   s.arrival,
			ViaStop:       s.via,
			DepartureTime: s.dep,
			ArrivalTime:   s.arr,
			Capacity:      opts.Capacity,
			DistanceKm:    s.km,
			Fare:          timetable.Fare(s.km, opts.FarePerKm),
			BreakMinutes:  timetable.BreakMinutes(s.km),
		})
	}
	c, err := New(routes...)
	if err != nil {
		// seed data is static; an error here is a programming mistake
		panic(err)
	}
	return c
}
