package main

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
)

const (
	siriNamespace = "http://www.siri.org.uk/siri"
	siriProducer  = "TransitTrack"
)

// encodeVehicleMonitoring renders vehicles as a SIRI VehicleMonitoring
// ServiceDelivery document.
func encodeVehicleMonitoring(vehicles []Vehicle, now time.Time) ([]byte, error) {
	stamp := now.UTC().Format(time.RFC3339)
	activities := make([]interface{}, 0, len(vehicles))
	for _, v := range vehicles {
		recorded := stamp
		if v.LastUpdate > 0 {
			recorded = time.UnixMilli(v.LastUpdate).UTC().Format(time.RFC3339)
		}
		activities = append(activities, map[string]interface{}{
			"RecordedAtTime": recorded,
			"MonitoredVehicleJourney": map[string]interface{}{
				"LineRef":           v.Route,
				"PublishedLineName": "Route " + v.Route,
				"Monitored":         "true",
				"VehicleRef":        v.ID,
				"VehicleLocation": map[string]interface{}{
					"Longitude": v.Lon,
					"Latitude":  v.Lat,
				},
				"Delay": siriDelay(v.Status),
			},
		})
	}

	doc := mxj.Map{
		"Siri": map[string]interface{}{
			"-xmlns":   siriNamespace,
			"-version": "2.0",
			"ServiceDelivery": map[string]interface{}{
				"ResponseTimestamp": stamp,
				"ProducerRef":       siriProducer,
				"VehicleMonitoringDelivery": map[string]interface{}{
					"-version":          "2.0",
					"ResponseTimestamp": stamp,
					"VehicleActivity":   activities,
				},
			},
		},
	}
	body, err := doc.XmlIndent("", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// siriDelay maps punctuality onto a nominal ISO 8601 delay.
func siriDelay(status string) string {
	switch strings.ToLower(status) {
	case "delayed":
		return "PT5M"
	case "early":
		return "-PT2M"
	default:
		return "PT0S"
	}
}
