package main

import (
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// encodeVehiclePositions renders vehicles as a full-dataset GTFS-RT feed.
func encodeVehiclePositions(vehicles []Vehicle, now time.Time) ([]byte, error) {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(vehicles)),
	}
	for _, v := range vehicles {
		ts := v.LastUpdate / 1000
		if ts == 0 {
			ts = now.Unix()
		}
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id: proto.String(v.ID),
			Vehicle: &gtfs.VehiclePosition{
				Trip: &gtfs.TripDescriptor{RouteId: proto.String(v.Route)},
				Vehicle: &gtfs.VehicleDescriptor{
					Id:    proto.String(v.ID),
					Label: proto.String(v.ID),
				},
				Position: &gtfs.Position{
					Latitude:  proto.Float32(float32(v.Lat)),
					Longitude: proto.Float32(float32(v.Lon)),
				},
				Timestamp:       proto.Uint64(uint64(ts)),
				OccupancyStatus: occupancyStatus(v.Passengers).Enum(),
			},
		})
	}
	return proto.Marshal(feed)
}

// occupancyStatus buckets a passenger count for a standard city bus.
func occupancyStatus(passengers int) gtfs.VehiclePosition_OccupancyStatus {
	switch {
	case passengers <= 0:
		return gtfs.VehiclePosition_EMPTY
	case passengers < 20:
		return gtfs.VehiclePosition_MANY_SEATS_AVAILABLE
	case passengers < 30:
		return gtfs.VehiclePosition_FEW_SEATS_AVAILABLE
	default:
		return gtfs.VehiclePosition_STANDING_ROOM_ONLY
	}
}
