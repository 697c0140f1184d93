package passenger

import (
	"context"
	"errors"
	"testing"

	"transittrack/pkg/notify"
)

func TestPlanRoute(t *testing.T) {
	tests := []struct {
		name      string
		req       PlanRequest
		wantErr   bool
		wantTitle string
		wantDesc  string
	}{
		{
			name:      "both given",
			req:       PlanRequest{From: "Downtown Plaza", To: "Airport Terminal"},
			wantTitle: "Route Found",
			wantDesc:  "Best route: Take Route 4B from Downtown Plaza to Airport Terminal. Estimated journey time: 18 minutes.",
		},
		{
			name:      "verbatim inputs",
			req:       PlanRequest{From: "  a<b> ", To: "Zürich"},
			wantTitle: "Route Found",
			wantDesc:  "Best route: Take Route 4B from   a<b>  to Zürich. Estimated journey time: 18 minutes.",
		},
		{
			name:      "missing origin",
			req:       PlanRequest{To: "Airport Terminal"},
			wantErr:   true,
			wantTitle: "Route Planning",
			wantDesc:  "Please enter both origin and destination.",
		},
		{
			name:      "missing destination",
			req:       PlanRequest{From: "Mall"},
			wantErr:   true,
			wantTitle: "Route Planning",
			wantDesc:  "Please enter both origin and destination.",
		},
		{
			name:      "both missing",
			wantErr:   true,
			wantTitle: "Route Planning",
			wantDesc:  "Please enter both origin and destination.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c notify.Collector
			err := New(&c, nil).PlanRoute(context.Background(), tt.req)
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrPlanIncomplete) {
				t.Errorf("expected ErrPlanIncomplete, got %v", err)
			}
			all := c.All()
			if len(all) != 1 {
				t.Fatalf("expected exactly one notification, got %d", len(all))
			}
			n := all[0]
			if n.Title != tt.wantTitle || n.Description != tt.wantDesc {
				t.Errorf("got %q / %q", n.Title, n.Description)
			}
			wantSeverity := notify.SeverityDefault
			if tt.wantErr {
				wantSeverity = notify.SeverityDestructive
			}
			if n.Severity != wantSeverity {
				t.Errorf("severity = %s, want %s", n.Severity, wantSeverity)
			}
		})
	}
}

func TestReportIssue(t *testing.T) {
	var c notify.Collector
	New(&c, nil).ReportIssue(context.Background(), IssueReport{BusID: "7A-002", Route: "Route 7A"})
	n, ok := c.Last()
	if !ok {
		t.Fatal("no notification")
	}
	want := "Thank you for reporting an issue with Route 7A. We'll investigate immediately."
	if n.Title != "Issue Reported" || n.Description != want || n.Severity != notify.SeverityDefault {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestWhatsAppIsNoop(t *testing.T) {
	var c notify.Collector
	New(&c, nil).WhatsApp(context.Background())
	if len(c.All()) != 0 {
		t.Error("WhatsApp should not notify")
	}
}

func TestTabs(t *testing.T) {
	d := New(nil, nil)
	if len(d.LiveBuses()) != 4 || len(d.NearbyStops()) != 3 || len(d.SampleItinerary().Steps) != 3 {
		t.Error("unexpected tab contents")
	}
}
