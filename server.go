package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"transittrack/pkg/config"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/notify"
	tto "transittrack/pkg/otel"
	"transittrack/pkg/passenger"
	"transittrack/pkg/sim"
	"transittrack/pkg/transit"
	"transittrack/web"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// app holds the process-wide collaborators shared by all handlers.
type app struct {
	cfg       config.AppConfig
	hub       *wsHub
	publisher *publisher
	renderer  *web.Renderer
	loader    mapwidget.Loader
	ops       notify.Notifier
	seeds     atomic.Uint64
}

// newRand returns a fresh source per component. A configured seed makes
// every session reproducible in connection order.
func (a *app) newRand() sim.Rand {
	if a.cfg.Simulation.Seed == 0 {
		return sim.NewRand(0)
	}
	return sim.NewRand(a.cfg.Simulation.Seed + a.seeds.Add(1))
}

func (a *app) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(withRecovery, withLogging)

	r.HandleFunc("/api/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/routes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, transit.Routes())
	}).Methods(http.MethodGet)

	p := r.PathPrefix("/api/passenger").Subrouter()
	p.HandleFunc("/buses", func(w http.ResponseWriter, r *http.Request) {
		d, _ := passengerDashboard()
		writeJSON(w, http.StatusOK, d.LiveBuses())
	}).Methods(http.MethodGet)
	p.HandleFunc("/stops", func(w http.ResponseWriter, r *http.Request) {
		d, _ := passengerDashboard()
		writeJSON(w, http.StatusOK, d.NearbyStops())
	}).Methods(http.MethodGet)
	p.HandleFunc("/itinerary", func(w http.ResponseWriter, r *http.Request) {
		d, _ := passengerDashboard()
		writeJSON(w, http.StatusOK, d.SampleItinerary())
	}).Methods(http.MethodGet)
	p.HandleFunc("/report", a.handleReport).Methods(http.MethodPost)
	p.HandleFunc("/plan", a.handlePlan).Methods(http.MethodPost)
	p.HandleFunc("/whatsapp", a.handleWhatsApp).Methods(http.MethodPost)

	r.HandleFunc("/ws/driver", a.handleDriverWS)
	r.HandleFunc("/ws/livemap", a.handleLiveMapWS)
	r.HandleFunc("/data.json", a.handleFeedWS)

	r.HandleFunc("/feeds/vehicle-positions.pb", a.handleGTFSRT).Methods(http.MethodGet)
	r.HandleFunc("/feeds/vehicle-monitoring.xml", a.handleSIRI).Methods(http.MethodGet)

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", web.Static()))
	for page, path := range map[string]string{
		"selector":  web.Path("home"),
		"driver":    web.Path("driver"),
		"passenger": web.Path("passenger"),
		"livemap":   web.Path("livemap"),
	} {
		r.HandleFunc(path, a.handlePage(page)).Methods(http.MethodGet)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Origin"},
	})
	return otelhttp.NewHandler(c.Handler(r), "transittrack")
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"sessions":      a.hub.count(),
		"feed_vehicles": len(a.publisher.snapshot()),
	})
}

func (a *app) handlePage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, _ := passengerDashboard()
		data := web.PageData{
			Destinations: web.Destinations(),
			Routes:       transit.Routes(),
			Buses:        d.LiveBuses(),
			Stops:        d.NearbyStops(),
			Itinerary:    d.SampleItinerary(),
			WhatsAppHint: passenger.WhatsAppHint,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := a.renderer.Render(w, page, data); err != nil {
			slog.Error("Failed to render page", "page", page, "error", err)
		}
	}
}

// notificationsResponse carries the notifications a passenger action produced.
type notificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
	Error         string                `json:"error,omitempty"`
}

func passengerDashboard() (*passenger.Dashboard, *notify.Collector) {
	collector := &notify.Collector{}
	return passenger.New(notify.Fanout{collector, notify.LogNotifier{}}, slog.Default()), collector
}

func (a *app) handleReport(w http.ResponseWriter, r *http.Request) {
	var req passenger.IssueReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, collected := passengerDashboard()
	d.ReportIssue(r.Context(), req)
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: collected.All()})
}

func (a *app) handlePlan(w http.ResponseWriter, r *http.Request) {
	span := trace.SpanFromContext(r.Context())
	var req passenger.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, collected := passengerDashboard()
	if err := d.PlanRoute(r.Context(), req); err != nil {
		tto.RecordError(span, err, tto.ErrorTypeValidation, false)
		writeJSON(w, http.StatusBadRequest, notificationsResponse{Notifications: collected.All(), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: collected.All()})
}

func (a *app) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	d, _ := passengerDashboard()
	d.WhatsApp(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleGTFSRT(w http.ResponseWriter, r *http.Request) {
	body, err := encodeVehiclePositions(a.publisher.snapshot(), time.Now())
	if err != nil {
		tto.RecordError(trace.SpanFromContext(r.Context()), err, tto.ErrorTypeEncoding, false)
		writeError(w, http.StatusInternalServerError, "failed to encode feed")
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	_, _ = w.Write(body)
}

func (a *app) handleSIRI(w http.ResponseWriter, r *http.Request) {
	body, err := encodeVehicleMonitoring(a.publisher.snapshot(), time.Now())
	if err != nil {
		tto.RecordError(trace.SpanFromContext(r.Context()), err, tto.ErrorTypeEncoding, false)
		writeError(w, http.StatusInternalServerError, "failed to encode feed")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withRecovery(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		h.ServeHTTP(w, r)
	})
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the logging wrapper.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
