// Package transit holds the read-only demo tables: routes, stops and the
// seed fleet. Accessors return fresh copies so callers can mutate freely.
package transit

import (
	"strings"

	"transittrack/pkg/geo"
)

// Status is a vehicle's punctuality.
type Status string

const (
	StatusOnTime  Status = "on-time"
	StatusDelayed Status = "delayed"
	StatusEarly   Status = "early"
)

// Color is the marker fill used for the status.
func (s Status) Color() string {
	switch s {
	case StatusOnTime:
		return "#16a34a"
	case StatusDelayed:
		return "#dc2626"
	default:
		return "#2563eb"
	}
}

// Vehicle is one bus shown on the live map.
type Vehicle struct {
	ID         string    `json:"id"`
	Route      string    `json:"route"`
	Position   geo.Point `json:"position"`
	Status     Status    `json:"status"`
	Passengers int       `json:"passengers"`
	ETA        string    `json:"eta"`
}

// RouteCode returns the short code of the route label ("Route 4B" -> "4B").
func (v Vehicle) RouteCode() string {
	if _, code, ok := strings.Cut(v.Route, " "); ok {
		return code
	}
	return v.Route
}

// RouteStop is an ordered stop on a route.
type RouteStop struct {
	Name     string    `json:"name"`
	Position geo.Point `json:"position"`
}

// Route is an entry of the route table. StopCount is the advertised number
// of stops and is independent of the (shorter) drawable Stops list.
type Route struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	StopCount   int         `json:"stop_count"`
	Stops       []RouteStop `json:"stops"`
}

// Points returns the stop coordinates in order.
func (r Route) Points() []geo.Point {
	out := make([]geo.Point, len(r.Stops))
	for i, s := range r.Stops {
		out[i] = s.Position
	}
	return out
}

// LiveBus is an entry of the passenger "Live Buses" tab.
type LiveBus struct {
	ID         string `json:"id"`
	Route      string `json:"route"`
	Location   string `json:"location"`
	ETA        string `json:"eta"`
	Passengers int    `json:"passengers"`
	Status     Status `json:"status"`
}

// NearbyStop is an entry of the passenger "Nearby Stops" tab.
type NearbyStop struct {
	Name     string   `json:"name"`
	Distance string   `json:"distance"`
	Routes   []string `json:"routes"`
	NextBus  string   `json:"next_bus"`
}

// ItineraryStep is one leg of a suggested journey.
type ItineraryStep struct {
	Mode string `json:"mode"` // walk|bus
	Text string `json:"text"`
}

type Itinerary struct {
	Steps []ItineraryStep `json:"steps"`
	Total string          `json:"total"`
}

// Location labels used by the driver's simulated position feed.
const (
	LocationWaiting  = "Waiting for GPS..."
	LocationDepot    = "Starting location - Depot"
	LocationEnded    = "Trip ended"
	DefaultRouteName = "Route 4B"
)

var (
	// MapCenter is the default centre of the fleet map (New York City).
	MapCenter = geo.Point{Lat: 40.7128, Lng: -74.0060}

	routes = []Route{
		{
			ID: "4B", Name: "Route 4B", Description: "Downtown ↔ Airport", StopCount: 12,
			Stops: []RouteStop{
				{"Downtown Plaza", geo.Point{Lat: 40.7128, Lng: -74.0060}},
				{"Main Street", geo.Point{Lat: 40.7282, Lng: -73.9942}},
				{"City Center", geo.Point{Lat: 40.7505, Lng: -73.9934}},
				{"Airport Terminal", geo.Point{Lat: 40.7589, Lng: -73.9851}},
			},
		},
		{
			ID: "7A", Name: "Route 7A", Description: "Central Station ↔ University", StopCount: 15,
			Stops: []RouteStop{
				{"Central Station", geo.Point{Lat: 40.7505, Lng: -73.9934}},
				{"University", geo.Point{Lat: 40.7589, Lng: -73.9851}},
				{"Library", geo.Point{Lat: 40.7614, Lng: -73.9776}},
				{"Hospital", geo.Point{Lat: 40.7505, Lng: -73.9934}},
			},
		},
		{
			ID: "12C", Name: "Route 12C", Description: "Mall ↔ Industrial Area", StopCount: 8,
			Stops: []RouteStop{
				{"Mall", geo.Point{Lat: 40.7282, Lng: -73.7949}},
				{"Shopping Center", geo.Point{Lat: 40.7128, Lng: -73.8370}},
				{"Industrial Area", geo.Point{Lat: 40.6892, Lng: -73.9442}},
			},
		},
		{
			ID: "9D", Name: "Route 9D", Description: "Residential ↔ Business District", StopCount: 18,
			Stops: []RouteStop{
				{"Residential", geo.Point{Lat: 40.7505, Lng: -73.9934}},
				{"Park", geo.Point{Lat: 40.7829, Lng: -73.9654}},
				{"Business District", geo.Point{Lat: 40.7589, Lng: -73.9851}},
				{"Convention Center", geo.Point{Lat: 40.7505, Lng: -73.9934}},
			},
		},
	}

	seedVehicles = []Vehicle{
		{ID: "4B-001", Route: "Route 4B", Position: geo.Point{Lat: 40.7128, Lng: -74.0060}, Status: StatusOnTime, Passengers: 18, ETA: "3 min"},
		{ID: "7A-002", Route: "Route 7A", Position: geo.Point{Lat: 40.7589, Lng: -73.9851}, Status: StatusDelayed, Passengers: 24, ETA: "7 min"},
		{ID: "12C-001", Route: "Route 12C", Position: geo.Point{Lat: 40.7505, Lng: -73.9934}, Status: StatusOnTime, Passengers: 8, ETA: "12 min"},
		{ID: "9D-003", Route: "Route 9D", Position: geo.Point{Lat: 40.7282, Lng: -73.7949}, Status: StatusEarly, Passengers: 31, ETA: "15 min"},
	}

	liveBuses = []LiveBus{
		{ID: "4B-001", Route: "Route 4B", Location: "Downtown Plaza", ETA: "3 min", Passengers: 18, Status: StatusOnTime},
		{ID: "7A-002", Route: "Route 7A", Location: "University", ETA: "7 min", Passengers: 24, Status: StatusDelayed},
		{ID: "12C-001", Route: "Route 12C", Location: "Mall", ETA: "12 min", Passengers: 8, Status: StatusOnTime},
		{ID: "9D-003", Route: "Route 9D", Location: "Business District", ETA: "15 min", Passengers: 31, Status: StatusOnTime},
	}

	nearbyStops = []NearbyStop{
		{Name: "Main Street Stop", Distance: "50m", Routes: []string{"4B", "7A"}, NextBus: "2 min"},
		{Name: "Central Plaza", Distance: "150m", Routes: []string{"12C", "9D"}, NextBus: "5 min"},
		{Name: "City Hall", Distance: "300m", Routes: []string{"4B", "9D"}, NextBus: "8 min"},
	}

	driverLocations = []string{
		"Stop 1 - Downtown Plaza",
		"Stop 2 - Main Street",
		"Stop 3 - City Center",
		"Stop 4 - Airport Terminal",
	}

	sampleItinerary = Itinerary{
		Steps: []ItineraryStep{
			{Mode: "walk", Text: "Walk 2 min to Main Street Stop"},
			{Mode: "bus", Text: "Take Route 4B (3 min wait, 15 min journey)"},
			{Mode: "walk", Text: "Walk 1 min to destination"},
		},
		Total: "Total journey time: 21 minutes",
	}
)

func cloneRoute(r Route) Route {
	r.Stops = append([]RouteStop(nil), r.Stops...)
	return r
}

// Routes returns the route table in display order.
func Routes() []Route {
	out := make([]Route, len(routes))
	for i, r := range routes {
		out[i] = cloneRoute(r)
	}
	return out
}

// LookupRoute finds a route by id.
func LookupRoute(id string) (Route, bool) {
	for _, r := range routes {
		if r.ID == id {
			return cloneRoute(r), true
		}
	}
	return Route{}, false
}

// SeedVehicles returns the initial fleet of the live map.
func SeedVehicles() []Vehicle {
	return append([]Vehicle(nil), seedVehicles...)
}

func LiveBuses() []LiveBus {
	return append([]LiveBus(nil), liveBuses...)
}

func NearbyStops() []NearbyStop {
	out := make([]NearbyStop, len(nearbyStops))
	for i, s := range nearbyStops {
		s.Routes = append([]string(nil), s.Routes...)
		out[i] = s
	}
	return out
}

// DriverLocations are the labels the driver's location signal cycles through.
func DriverLocations() []string {
	return append([]string(nil), driverLocations...)
}

func SampleItinerary() Itinerary {
	return Itinerary{
		Steps: append([]ItineraryStep(nil), sampleItinerary.Steps...),
		Total: sampleItinerary.Total,
	}
}
