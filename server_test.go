package main

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"transittrack/pkg/config"
	"transittrack/pkg/driver"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/notify"
	"transittrack/pkg/passenger"
	"transittrack/pkg/transit"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/clbanning/mxj/v2"
	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
)

func newTestApp(t *testing.T) (*app, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Maps.APIKey = "test-key"
	cfg.Maps.Offline = true
	cfg.Simulation.Seed = 42
	cfg.Simulation.TripTickMS = 20
	cfg.Simulation.SignalIntervalMS = 50
	cfg.Simulation.AdvanceIntervalMS = 50
	cfg.Simulation.FleetIntervalMS = 50

	a, err := newApp(cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	return a, srv
}

func TestHealth(t *testing.T) {
	_, srv := newTestApp(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status       string `json:"status"`
		Sessions     int    `json:"sessions"`
		FeedVehicles int    `json:"feed_vehicles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Sessions != 0 || body.FeedVehicles != 4 {
		t.Errorf("unexpected health body: %+v", body)
	}
}

func TestPages(t *testing.T) {
	_, srv := newTestApp(t)
	tests := []struct {
		path string
		want string
	}{
		{"/", "TransitTrack"},
		{"/driver", "Route 7A"},
		{"/passenger", "Main Street Stop"},
		{"/livemap", "Live"},
		{"/static/app.js", "WebSocket"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("response for %s does not contain %q", tt.path, tt.want)
			}
		})
	}
}

func TestPassengerTablesEndpoints(t *testing.T) {
	_, srv := newTestApp(t)

	var routes []transit.Route
	getJSON(t, srv.URL+"/api/routes", &routes)
	if len(routes) != 4 || routes[0].ID != "4B" {
		t.Errorf("unexpected routes: %+v", routes)
	}

	var buses []transit.LiveBus
	getJSON(t, srv.URL+"/api/passenger/buses", &buses)
	if len(buses) != 4 {
		t.Errorf("expected 4 buses, got %d", len(buses))
	}

	var stops []transit.NearbyStop
	getJSON(t, srv.URL+"/api/passenger/stops", &stops)
	if len(stops) != 3 {
		t.Errorf("expected 3 stops, got %d", len(stops))
	}

	var itinerary transit.Itinerary
	getJSON(t, srv.URL+"/api/passenger/itinerary", &itinerary)
	if len(itinerary.Steps) != 3 || itinerary.Total != "Total journey time: 21 minutes" {
		t.Errorf("unexpected itinerary: %+v", itinerary)
	}
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
}

func TestPlanRoute(t *testing.T) {
	_, srv := newTestApp(t)
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantTitle  string
	}{
		{"complete", `{"from":"Home","to":"Work"}`, http.StatusOK, "Route Found"},
		{"missing destination", `{"from":"Home"}`, http.StatusBadRequest, "Route Planning"},
		{"malformed", `{`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/passenger/plan", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			var body notificationsResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if tt.wantTitle == "" {
				return
			}
			if len(body.Notifications) != 1 || body.Notifications[0].Title != tt.wantTitle {
				t.Fatalf("unexpected notifications: %+v", body.Notifications)
			}
			destructive := body.Notifications[0].Severity == notify.SeverityDestructive
			if destructive != (tt.wantStatus != http.StatusOK) {
				t.Errorf("unexpected severity %v for status %d", body.Notifications[0].Severity, tt.wantStatus)
			}
			failed := tt.wantStatus != http.StatusOK
			if failed && !strings.HasPrefix(body.Error, passenger.ErrPlanIncomplete.Error()) {
				t.Errorf("error %q should describe the incomplete plan", body.Error)
			}
			if !failed && body.Error != "" {
				t.Errorf("unexpected error %q", body.Error)
			}
		})
	}
}

func TestReportAndWhatsApp(t *testing.T) {
	_, srv := newTestApp(t)

	resp, err := http.Post(srv.URL+"/api/passenger/report", "application/json",
		bytes.NewBufferString(`{"bus_id":"7A-002","route":"Route 7A"}`))
	if err != nil {
		t.Fatal(err)
	}
	var body notificationsResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(body.Notifications) != 1 {
		t.Errorf("report: status %d, notifications %+v", resp.StatusCode, body.Notifications)
	}

	resp, err = http.Post(srv.URL+"/api/passenger/whatsapp", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("whatsapp: expected 204, got %d", resp.StatusCode)
	}
}

func TestGTFSRTFeed(t *testing.T) {
	_, srv := newTestApp(t)
	resp, err := http.Get(srv.URL + "/feeds/vehicle-positions.pb")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(data, &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if feed.GetHeader().GetGtfsRealtimeVersion() != "2.0" {
		t.Errorf("unexpected version %q", feed.GetHeader().GetGtfsRealtimeVersion())
	}
	if len(feed.GetEntity()) != 4 {
		t.Fatalf("expected 4 entities, got %d", len(feed.GetEntity()))
	}
	first := feed.GetEntity()[0].GetVehicle()
	if first.GetVehicle().GetId() != "4B-001" || first.GetTrip().GetRouteId() != "4B" {
		t.Errorf("unexpected first entity: %v", first)
	}
}

func TestSIRIFeed(t *testing.T) {
	_, srv := newTestApp(t)
	resp, err := http.Get(srv.URL + "/feeds/vehicle-monitoring.xml")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("unexpected content type %q", ct)
	}

	m, err := mxj.NewMapXml(data)
	if err != nil {
		t.Fatalf("decode siri: %v", err)
	}
	refs, err := m.ValuesForPath("Siri.ServiceDelivery.VehicleMonitoringDelivery.VehicleActivity.MonitoredVehicleJourney.VehicleRef")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 4 {
		t.Errorf("expected 4 vehicle refs, got %d", len(refs))
	}
}

func TestEncodeVehicleMonitoring(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	body, err := encodeVehicleMonitoring([]Vehicle{
		{ID: "7A-002", Lat: 40.7589, Lon: -73.9851, Route: "7A", Status: "delayed"},
	}, now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(body, []byte(xml.Header)) {
		t.Errorf("document should start with the XML declaration, got %q", body[:min(len(body), 40)])
	}

	m, err := mxj.NewMapXml(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	journey := "Siri.ServiceDelivery.VehicleMonitoringDelivery.VehicleActivity.MonitoredVehicleJourney"
	tests := map[string]string{
		journey + ".VehicleRef":        "7A-002",
		journey + ".LineRef":           "7A",
		journey + ".PublishedLineName": "Route 7A",
		journey + ".Delay":             "PT5M",
		"Siri.ServiceDelivery.ResponseTimestamp": "2026-03-01T12:00:00Z",
	}
	for path, want := range tests {
		got, err := m.ValueForPathString(path)
		if err != nil || got != want {
			t.Errorf("%s = %q (%v), want %q", path, got, err, want)
		}
	}
}

func TestOccupancyStatus(t *testing.T) {
	tests := []struct {
		passengers int
		want       gtfs.VehiclePosition_OccupancyStatus
	}{
		{0, gtfs.VehiclePosition_EMPTY},
		{8, gtfs.VehiclePosition_MANY_SEATS_AVAILABLE},
		{24, gtfs.VehiclePosition_FEW_SEATS_AVAILABLE},
		{31, gtfs.VehiclePosition_STANDING_ROOM_ONLY},
	}
	for _, tt := range tests {
		if got := occupancyStatus(tt.passengers); got != tt.want {
			t.Errorf("occupancyStatus(%d) = %v, want %v", tt.passengers, got, tt.want)
		}
	}
}

func TestSiriDelay(t *testing.T) {
	tests := map[string]string{"delayed": "PT5M", "early": "-PT2M", "on-time": "PT0S", "": "PT0S"}
	for status, want := range tests {
		if got := siriDelay(status); got != want {
			t.Errorf("siriDelay(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestDetectChanges(t *testing.T) {
	a, _ := newTestApp(t)
	p := a.publisher

	before := p.snapshot()
	changed, after := p.detectChanges(before)
	if changed {
		t.Error("an identical snapshot should not be reported as changed")
	}
	for i := range after {
		if after[i].LastUpdate != before[i].LastUpdate {
			t.Errorf("%s: LastUpdate changed without movement", after[i].ID)
		}
	}

	moved := p.snapshot()
	moved[2].Lat += 0.01
	changed, after = p.detectChanges(moved)
	if !changed {
		t.Fatal("a moved vehicle should be reported")
	}
	if after[2].ID != "12C-001" {
		t.Errorf("fleet order not kept: %s", after[2].ID)
	}
}

type sessionConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server, path string) *sessionConn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &sessionConn{t: t, conn: conn}
}

func (s *sessionConn) send(msg clientMessage) {
	s.t.Helper()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.t.Fatal(err)
	}
}

// await reads messages until match returns true.
func (s *sessionConn) await(what string, match func(serverMessage) bool) serverMessage {
	s.t.Helper()
	_ = s.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg serverMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.t.Fatalf("waiting for %s: %v", what, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func notification(title string) func(serverMessage) bool {
	return func(m serverMessage) bool {
		return m.Type == msgNotification && m.Notification.Title == title
	}
}

func TestDriverSession(t *testing.T) {
	_, srv := newTestApp(t)
	s := dial(t, srv, "/ws/driver")

	s.await("initial snapshot", func(m serverMessage) bool {
		return m.Type == msgTrip && m.Trip.State == driver.Idle
	})
	s.await("map created", func(m serverMessage) bool {
		return m.Type == msgMap && m.Command.Op == mapwidget.OpCreateMap
	})

	s.send(clientMessage{Type: cmdStartTrip})
	s.await("route required", notification("Route Required"))
	s.await("route required error", func(m serverMessage) bool {
		return m.Type == msgError && m.Error == driver.ErrRouteRequired.Error()
	})

	s.send(clientMessage{Type: cmdSelectRoute, Route: "7A"})
	s.await("route polyline", func(m serverMessage) bool {
		return m.Type == msgMap && m.Command.Op == mapwidget.OpDrawPolyline
	})

	s.send(clientMessage{Type: cmdStartTrip})
	started := s.await("trip started", notification("Trip Started"))
	if started.Notification.Description != "Now tracking Route 7A" {
		t.Errorf("unexpected start message %q", started.Notification.Description)
	}
	s.await("elapsed tick", func(m serverMessage) bool {
		return m.Type == msgTrip && m.Trip.State == driver.Active && m.Trip.Elapsed >= 1
	})

	s.send(clientMessage{Type: cmdSelectRoute, Route: "4B"})
	s.await("route locked", func(m serverMessage) bool {
		return m.Type == msgError && m.Error == driver.ErrRouteLocked.Error()
	})

	s.send(clientMessage{Type: cmdEndTrip})
	ended := s.await("trip ended", notification("Trip Ended"))
	if !strings.HasPrefix(ended.Notification.Description, "Total trip duration: ") {
		t.Errorf("unexpected end message %q", ended.Notification.Description)
	}

	s.send(clientMessage{Type: "teleport"})
	s.await("unknown command", func(m serverMessage) bool {
		return m.Type == msgError && strings.Contains(m.Error, errUnknownCommand.Error())
	})
}

func TestLiveMapSession(t *testing.T) {
	_, srv := newTestApp(t)
	s := dial(t, srv, "/ws/livemap")

	s.await("map created", func(m serverMessage) bool {
		return m.Type == msgMap && m.Command.Op == mapwidget.OpCreateMap
	})
	s.await("vehicle marker", func(m serverMessage) bool {
		return m.Type == msgMap && m.Command.Op == mapwidget.OpAddMarker
	})

	s.send(clientMessage{Type: cmdChangeCredential})
	s.await("credential form", func(m serverMessage) bool {
		return m.Type == msgMap && m.Command.Op == mapwidget.OpShowCredentialForm
	})

	s.send(clientMessage{Type: cmdCredential, Key: "   "})
	s.await("credential rejected", func(m serverMessage) bool {
		return m.Type == msgError
	})
}

func TestFeedSocketAndShutdown(t *testing.T) {
	a, srv := newTestApp(t)
	feed := dial(t, srv, "/data.json")

	_ = feed.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var vehicles []Vehicle
	if err := feed.conn.ReadJSON(&vehicles); err != nil {
		t.Fatal(err)
	}
	if len(vehicles) != 4 {
		t.Fatalf("expected 4 vehicles, got %d", len(vehicles))
	}

	drv := dial(t, srv, "/ws/driver")
	drv.await("initial snapshot", func(m serverMessage) bool { return m.Type == msgTrip })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.hub.shutdown(ctx)

	drv.await("restart notice", notification("Server Restarting"))
	_, _, err := drv.conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}
