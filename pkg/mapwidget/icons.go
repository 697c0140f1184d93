package mapwidget

import (
	"encoding/base64"
	"fmt"
	"html"

	"transittrack/pkg/transit"
)

func svgDataURI(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// VehicleIcon is a 40x40 status-coloured circle with route code and load.
func VehicleIcon(routeCode string, passengers int, status transit.Status) string {
	svg := fmt.Sprintf(`<svg width="40" height="40" viewBox="0 0 40 40" xmlns="http://www.w3.org/2000/svg">
  <circle cx="20" cy="20" r="18" fill="%s" stroke="white" stroke-width="2"/>
  <text x="20" y="14" text-anchor="middle" fill="white" font-size="8" font-weight="bold">%s</text>
  <text x="20" y="26" text-anchor="middle" fill="white" font-size="6">%d</text>
</svg>`, status.Color(), html.EscapeString(routeCode), passengers)
	return svgDataURI(svg)
}

// DriverIcon is the 50x50 "BUS" marker of the driver's own vehicle.
func DriverIcon(routeID string) string {
	svg := fmt.Sprintf(`<svg width="50" height="50" viewBox="0 0 50 50" xmlns="http://www.w3.org/2000/svg">
  <circle cx="25" cy="25" r="22" fill="#2563eb" stroke="white" stroke-width="3"/>
  <text x="25" y="18" text-anchor="middle" fill="white" font-size="10" font-weight="bold">BUS</text>
  <text x="25" y="32" text-anchor="middle" fill="white" font-size="8">%s</text>
</svg>`, html.EscapeString(routeID))
	return svgDataURI(svg)
}

// StopIcon is a 30x30 green circle; the stop number is drawn as the marker label.
func StopIcon() string {
	return svgDataURI(`<svg width="30" height="30" viewBox="0 0 30 30" xmlns="http://www.w3.org/2000/svg">
  <circle cx="15" cy="15" r="12" fill="#16a34a" stroke="white" stroke-width="2"/>
</svg>`)
}

// InfoHTML is the click popup of a vehicle marker.
func InfoHTML(v transit.Vehicle) string {
	return fmt.Sprintf(`<div style="padding: 8px;">
  <h3 style="margin: 0; color: #2563eb;">%s</h3>
  <p style="margin: 4px 0;"><strong>ETA:</strong> %s</p>
  <p style="margin: 4px 0;"><strong>Passengers:</strong> %d</p>
  <p style="margin: 4px 0;"><strong>Status:</strong> %s</p>
</div>`, html.EscapeString(v.Route), html.EscapeString(v.ETA), v.Passengers, html.EscapeString(string(v.Status)))
}

// VehicleMarker builds the live map marker of v.
func VehicleMarker(v transit.Vehicle) Marker {
	return Marker{
		ID:       v.ID,
		Title:    v.Route + " - " + v.ETA,
		Position: v.Position,
		Icon:     VehicleIcon(v.RouteCode(), v.Passengers, v.Status),
		Info:     InfoHTML(v),
	}
}
