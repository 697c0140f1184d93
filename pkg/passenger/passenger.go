// Package passenger serves the passenger dashboard: static bus and stop
// tabs, issue reports and the canned route planner.
package passenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"transittrack/pkg/notify"
	"transittrack/pkg/transit"

	"github.com/go-playground/validator/v10"
)

// ErrPlanIncomplete is returned when origin or destination is missing.
var ErrPlanIncomplete = errors.New("origin and destination required")

// WhatsAppHint is the bot prompt shown next to the WhatsApp action.
const WhatsAppHint = `Send "Where is Bus 4B?" to our WhatsApp bot for instant updates`

var validate = validator.New()

// PlanRequest is a journey query.
type PlanRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// IssueReport identifies the bus a passenger is reporting.
type IssueReport struct {
	BusID string `json:"bus_id"`
	Route string `json:"route"`
}

// Dashboard answers one passenger's interactions. Results are delivered as
// notifications.
type Dashboard struct {
	notifier notify.Notifier
	logger   *slog.Logger
}

func New(notifier notify.Notifier, logger *slog.Logger) *Dashboard {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{notifier: notifier, logger: logger.With("component", "passenger")}
}

func (d *Dashboard) LiveBuses() []transit.LiveBus { return transit.LiveBuses() }

func (d *Dashboard) NearbyStops() []transit.NearbyStop { return transit.NearbyStops() }

func (d *Dashboard) SampleItinerary() transit.Itinerary { return transit.SampleItinerary() }

// ReportIssue acknowledges a report. Nothing is stored or forwarded.
func (d *Dashboard) ReportIssue(ctx context.Context, r IssueReport) {
	d.logger.Debug("Issue reported", "bus_id", r.BusID, "route", r.Route)
	d.notifier.Notify(ctx, notify.Info("Issue Reported",
		fmt.Sprintf("Thank you for reporting an issue with %s. We'll investigate immediately.", r.Route)))
}

// PlanRoute always suggests Route 4B; both inputs are echoed verbatim.
func (d *Dashboard) PlanRoute(ctx context.Context, req PlanRequest) error {
	if err := validate.Struct(req); err != nil {
		d.notifier.Notify(ctx, notify.Error("Route Planning", "Please enter both origin and destination."))
		return fmt.Errorf("%w: %w", ErrPlanIncomplete, err)
	}
	d.notifier.Notify(ctx, notify.Info("Route Found",
		fmt.Sprintf("Best route: Take Route 4B from %s to %s. Estimated journey time: 18 minutes.", req.From, req.To)))
	return nil
}

// WhatsApp is the entry point of the messaging bot. It does nothing.
func (d *Dashboard) WhatsApp(ctx context.Context) {
	d.logger.Debug("WhatsApp action requested")
}
