package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"transittrack/pkg/driver"
	"transittrack/pkg/livemap"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/metrics"
	"transittrack/pkg/notify"
	tto "transittrack/pkg/otel"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	kindFeed    = "feed"
	kindDriver  = "driver"
	kindLiveMap = "livemap"

	sendBuffer = 64
	writeWait  = 10 * time.Second
)

var sessionTracer = otel.Tracer("transittrack-session")

// client is one websocket connection. All writes go through writePump.
type client struct {
	id     string
	kind   string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newClient(conn *websocket.Conn, kind string) *client {
	id := uuid.NewString()
	return &client{
		id:     id,
		kind:   kind,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: slog.Default().With("client", id, "kind", kind),
	}
}

// enqueue blocks until data is queued or the client is closed.
func (c *client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	}
}

func (c *client) sendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to encode message", "error", err)
		return
	}
	c.enqueue(data)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump writes queued messages. A nil message sends a going-away close
// frame and ends the connection.
func (c *client) writePump() {
	defer c.close()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if data == nil {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server restarting"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("ws write error", "error", err)
				return
			}
		}
	}
}

// notifier delivers notifications to this connection.
func (c *client) notifier() notify.Notifier {
	return notify.NotifierFunc(func(_ context.Context, n notify.Notification) {
		c.sendJSON(serverMessage{Type: msgNotification, Notification: &n})
	})
}

// surface sends map commands to this connection.
func (c *client) surface() mapwidget.Surface {
	return mapwidget.CommandSurface(func(cmd mapwidget.Command) {
		c.sendJSON(serverMessage{Type: msgMap, Command: &cmd})
	})
}

type wsHub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *wsHub {
	return &wsHub{clients: make(map[*client]struct{})}
}

func (h *wsHub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast sends the feed snapshot to /data.json subscribers. Subscribers
// that cannot keep up are dropped.
func (h *wsHub) broadcast(vehicles []Vehicle) {
	data, _ := json.Marshal(vehicles)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.kind != kindFeed {
			continue
		}
		select {
		case c.send <- data:
		default:
			c.close()
			delete(h.clients, c)
		}
	}
}

// shutdown tells every session the server is going away, closes all
// connections and waits for their writers until ctx expires.
func (h *wsHub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	restarting := notify.Info("Server Restarting", "The server is restarting. Please reconnect in a moment.")
	for _, c := range clients {
		go func(c *client) {
			if c.kind != kindFeed {
				c.sendJSON(serverMessage{Type: msgNotification, Notification: &restarting})
			}
			c.enqueue(nil)
		}(c)
	}
	for _, c := range clients {
		select {
		case <-c.done:
		case <-ctx.Done():
			c.close()
		}
	}
}

func (a *app) upgrade(w http.ResponseWriter, r *http.Request, kind string) (*client, bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade error", "error", err)
		return nil, false
	}
	c := newClient(conn, kind)
	a.hub.add(c)
	go c.writePump()
	return c, true
}

// handleFeedWS streams the shared fleet as JSON arrays.
func (a *app) handleFeedWS(w http.ResponseWriter, r *http.Request) {
	c, ok := a.upgrade(w, r, kindFeed)
	if !ok {
		return
	}
	go a.readPump(c)

	// Send the most recent snapshot so the map centres quickly
	data, _ := json.Marshal(a.publisher.snapshot())
	c.enqueue(data)
}

func (a *app) readPump(c *client) {
	defer func() {
		a.hub.remove(c)
		c.close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// serveSession reads commands until the socket closes. Command errors are
// reported back to the client as error events.
func (a *app) serveSession(ctx context.Context, c *client, handle func(context.Context, clientMessage) error) {
	defer func() {
		a.hub.remove(c)
		c.close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("ws read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendJSON(serverMessage{Type: msgError, Error: "malformed command"})
			continue
		}

		cctx, span := sessionTracer.Start(ctx, "session."+msg.Type,
			trace.WithAttributes(
				attribute.String("session.id", c.id),
				attribute.String("session.kind", c.kind),
			),
		)
		if err := handle(cctx, msg); err != nil {
			tto.RecordError(span, err, tto.ErrorTypeState, false)
			c.sendJSON(serverMessage{Type: msgError, Error: err.Error()})
		} else {
			tto.SetSpanOk(span)
		}
		span.End()
	}
}

var errUnknownCommand = errors.New("unknown command")

func (a *app) handleDriverWS(w http.ResponseWriter, r *http.Request) {
	c, ok := a.upgrade(w, r, kindDriver)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	simCfg := a.cfg.Simulation

	notifier := notify.Fanout{c.notifier(), notify.LogNotifier{Logger: c.logger}}
	dmap := driver.NewMap(driver.MapConfig{
		Credential:      a.cfg.Maps.APIKey,
		AdvanceInterval: simCfg.AdvanceInterval(),
	}, driver.MapDeps{
		Surface:  c.surface(),
		Notifier: notifier,
		Loader:   a.loader,
		Rand:     a.newRand(),
		Logger:   c.logger,
	})
	dash := driver.NewDashboard(driver.Config{
		TickInterval:   simCfg.TripTick(),
		SignalInterval: simCfg.SignalInterval(),
	}, driver.Deps{
		Map:      dmap,
		Notifier: notifier,
		Ops:      a.ops,
		Rand:     a.newRand(),
		Logger:   c.logger,
		OnChange: func(s driver.Snapshot) {
			c.sendJSON(serverMessage{Type: msgTrip, Trip: &s})
		},
	})
	defer dash.Close()

	metrics.RecordSession(ctx, kindDriver, 1)
	defer metrics.RecordSession(ctx, kindDriver, -1)
	c.logger.Info("Driver session opened")
	defer c.logger.Info("Driver session closed")

	snap := dash.Snapshot()
	c.sendJSON(serverMessage{Type: msgTrip, Trip: &snap})
	dmap.Mount(ctx)

	a.serveSession(ctx, c, func(ctx context.Context, msg clientMessage) error {
		switch msg.Type {
		case cmdSelectRoute:
			return dash.SelectRoute(ctx, msg.Route)
		case cmdStartTrip:
			return dash.Start(ctx)
		case cmdEndTrip:
			return dash.End(ctx)
		default:
			return fmt.Errorf("%w: %q", errUnknownCommand, msg.Type)
		}
	})
}

func (a *app) handleLiveMapWS(w http.ResponseWriter, r *http.Request) {
	c, ok := a.upgrade(w, r, kindLiveMap)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())

	session := livemap.New(livemap.Config{
		Credential:     a.cfg.Maps.APIKey,
		JitterInterval: a.cfg.Simulation.FleetInterval(),
	}, livemap.Deps{
		Surface:  c.surface(),
		Notifier: notify.Fanout{c.notifier(), notify.LogNotifier{Logger: c.logger}},
		Loader:   a.loader,
		Rand:     a.newRand(),
		Logger:   c.logger,
	})
	defer session.Close()

	metrics.RecordSession(ctx, kindLiveMap, 1)
	defer metrics.RecordSession(ctx, kindLiveMap, -1)
	c.logger.Info("Live map session opened")
	defer c.logger.Info("Live map session closed")

	session.Open(ctx)

	a.serveSession(ctx, c, func(ctx context.Context, msg clientMessage) error {
		switch msg.Type {
		case cmdCredential:
			return session.SubmitCredential(ctx, msg.Key)
		case cmdChangeCredential:
			session.ChangeCredential(ctx)
			return nil
		default:
			return fmt.Errorf("%w: %q", errUnknownCommand, msg.Type)
		}
	})
}
