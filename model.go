package main

import (
	"transittrack/pkg/driver"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/notify"
	"transittrack/pkg/transit"
)

// Vehicle is the normalized feed model sent to /data.json subscribers.
type Vehicle struct {
	ID         string  `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	LastUpdate int64   `json:"lastUpdate"`
	Route      string  `json:"route,omitempty"`
	Status     string  `json:"status,omitempty"`
	Passengers int     `json:"passengers"`
}

func feedVehicle(v transit.Vehicle) Vehicle {
	return Vehicle{
		ID:         v.ID,
		Lat:        v.Position.Lat,
		Lon:        v.Position.Lng,
		Route:      v.RouteCode(),
		Status:     string(v.Status),
		Passengers: v.Passengers,
	}
}

func feedVehicles(in []transit.Vehicle) []Vehicle {
	out := make([]Vehicle, 0, len(in))
	for _, v := range in {
		out = append(out, feedVehicle(v))
	}
	return out
}

// Session websocket message types.
const (
	msgTrip         = "trip"
	msgMap          = "map"
	msgNotification = "notification"
	msgError        = "error"

	cmdSelectRoute      = "selectRoute"
	cmdStartTrip        = "startTrip"
	cmdEndTrip          = "endTrip"
	cmdCredential       = "credential"
	cmdChangeCredential = "changeCredential"
)

// serverMessage is an event pushed to a session socket.
type serverMessage struct {
	Type         string               `json:"type"`
	Trip         *driver.Snapshot     `json:"trip,omitempty"`
	Command      *mapwidget.Command   `json:"command,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// clientMessage is a command received from a session socket.
type clientMessage struct {
	Type  string `json:"type"`
	Route string `json:"route,omitempty"`
	Key   string `json:"key,omitempty"`
}
