package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transittrack/pkg/config"
	"transittrack/pkg/fleet"
	"transittrack/pkg/logging"
	"transittrack/pkg/mapwidget"
	"transittrack/pkg/metrics"
	"transittrack/pkg/notify"
	"transittrack/pkg/profiling"
	"transittrack/pkg/sim"
	"transittrack/pkg/tracing"
	"transittrack/web"
)

var (
	configPath      = flag.String("config", "config.yml", "Path to config file (.yml or .toml)")
	httpPort        = flag.Int("port", 0, "HTTP port (overrides config)")
	mapsAPIKey      = flag.String("maps_api_key", "", "Google Maps API key (overrides config)")
	shutdownTimeout = flag.Duration("shutdown_timeout", 0, "HTTP server shutdown timeout (overrides config)")
)

func main() {
	flag.Parse()
	logging.Init()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	applyFlags(&cfg)

	shutdownTracing, err := tracing.Init()
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	shutdownMetrics, err := metrics.Init()
	if err != nil {
		slog.Error("Failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer shutdownMetrics()

	shutdownProfiling, err := profiling.Init()
	if err != nil {
		slog.Error("Failed to initialize profiling", "error", err)
		os.Exit(1)
	}
	defer shutdownProfiling()

	a, err := newApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "url", fmt.Sprintf("http://localhost:%d/", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// start feed publisher
	pctx, pcancel := context.WithCancel(context.Background())
	go a.publisher.run(pctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	slog.Info("Shutdown initiated")

	pcancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	a.hub.shutdown(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shut down successfully")
	}
}

func applyFlags(cfg *config.AppConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *httpPort
		case "maps_api_key":
			cfg.Maps.APIKey = *mapsAPIKey
		case "shutdown_timeout":
			cfg.Server.ShutdownTimeoutMS = int(shutdownTimeout.Milliseconds())
		}
	})
}

func newApp(cfg config.AppConfig) (*app, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	var loader mapwidget.Loader = mapwidget.NewHTTPLoader(cfg.Maps.SDKURL)
	if cfg.Maps.Offline {
		loader = mapwidget.Offline
	}

	var ops notify.Notifier
	if cfg.Slack.Token != "" {
		ops = notify.Async(notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel), 10*time.Second)
		slog.Info("Mirroring trip events to Slack", "channel", cfg.Slack.Channel)
	}

	a := &app{
		cfg:      cfg,
		hub:      newHub(),
		renderer: renderer,
		loader:   loader,
		ops:      ops,
	}
	a.publisher = newPublisher(fleet.New("feed", sim.NewRand(cfg.Simulation.Seed)), cfg.Simulation.FeedInterval(), a.hub)
	return a, nil
}
