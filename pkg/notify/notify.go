// Package notify is the user-visible message surface. Notifications are
// fire-and-forget: senders never learn whether anyone saw them.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"transittrack/pkg/metrics"
)

type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Info builds a default-severity notification.
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: SeverityDefault}
}

// Error builds a destructive notification.
func Error(title, description string) Notification {
	return Notification{Title: title, Description: description, Severity: SeverityDestructive}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	metrics.RecordNotification(ctx, string(n.Severity))
	f(ctx, n)
}

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(context.Context, Notification) {})

// Fanout delivers to every notifier in order. Nil entries are skipped.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) {
	for _, nt := range f {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

type asyncNotifier struct {
	next    Notifier
	timeout time.Duration
}

// Async delivers each notification to next on its own goroutine, bounded by
// timeout. Cancelling the caller's context does not cancel delivery.
func Async(next Notifier, timeout time.Duration) Notifier {
	return asyncNotifier{next: next, timeout: timeout}
}

func (a asyncNotifier) Notify(ctx context.Context, n Notification) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		a.next.Notify(ctx, n)
	}()
}

// Collector records notifications; request/response handlers return them.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func (c *Collector) Notify(ctx context.Context, n Notification) {
	metrics.RecordNotification(ctx, string(n.Severity))
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

// All returns a copy of everything collected so far.
func (c *Collector) All() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

// Last returns the most recent notification.
func (c *Collector) Last() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return Notification{}, false
	}
	return c.items[len(c.items)-1], true
}

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Severity == SeverityDestructive {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "notification", "title", n.Title, "description", n.Description)
}
