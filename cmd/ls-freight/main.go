// Command ls-freight is a terminal globe and flat map of shipments in transit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/litescript/ls-freight/internal/config"
	"github.com/litescript/ls-freight/internal/feed"
	"github.com/litescript/ls-freight/internal/logging"
	"github.com/litescript/ls-freight/internal/metrics"
	"github.com/litescript/ls-freight/internal/scene"
	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/state"
	"github.com/litescript/ls-freight/internal/telemetry"
	"github.com/litescript/ls-freight/internal/ui"
)

// CLI flags for headless mode
var (
	summaryMode   bool
	watchInterval time.Duration
	snapshotPath  string
	eventsMode    bool
	beepMode      bool
)

const (
	minRefresh = 1 * time.Second
	maxRefresh = 30 * time.Minute
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup, such as closing the log
// file, happens before the process exits.
func run() int {
	// Parse flags
	configPath := flag.String("config", "", "YAML options file")
	refresh := flag.Duration("refresh", 0, "Shipment refresh interval (overrides config)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Write logs to file (the TUI discards them otherwise)")
	routesPath := flag.String("routes", "", "Route table (YAML, or GeoJSON LineStrings)")
	shipmentsPath := flag.String("shipments", "", "Shipment list JSON file")
	feedURL := flag.String("feed-url", "", "Shipment list JSON endpoint")
	texturePath := flag.String("texture", "", "Land mask (ASCII or GeoJSON polygons)")
	view := flag.String("view", "globe", "Initial view (globe, flat)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
	simTelemetry := flag.Bool("telemetry", true, "Simulate container telemetry")
	seed := flag.Int64("seed", 1, "Telemetry simulation seed")
	flag.BoolVar(&summaryMode, "summary", false, "Print text summary instead of TUI")
	flag.DurationVar(&watchInterval, "watch", 0, "Repeat fetch at interval (e.g., 30s)")
	flag.StringVar(&snapshotPath, "snapshot-path", "", "Export JSON snapshot to file (use - for stdout)")
	flag.BoolVar(&eventsMode, "events", false, "Show shipment change log")
	flag.BoolVar(&beepMode, "beep", false, "Beep on status changes (TTY only)")
	flag.Parse()

	opts, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	applyFlagOverrides(&opts, *refresh, *routesPath, *shipmentsPath, *feedURL, *texturePath)

	headless := summaryMode || snapshotPath != "" || eventsMode

	// Set up logging
	level := logging.ParseLevel(*logLevel)
	logger := logging.New(level)
	if *logFile != "" {
		if logger, err = logging.NewFile(level, *logFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer logger.Close()
	} else if !headless {
		logger.SetOutput(io.Discard)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	table, err := shipment.LoadTableFile(opts.RouteTable)
	if err != nil {
		logger.Error("load route table: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var collector *metrics.Collector
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if collector, err = metrics.NewCollector(reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		go serveMetrics(ctx, *metricsAddr, collector, logger.Named("metrics"))
	}

	// Initialize components
	stateCfg := state.DefaultConfig()
	stateCfg.RefreshInterval = opts.RefreshInterval
	stateMgr := state.NewManager(stateCfg)

	fetcher := newFetcher(opts)
	logger.Info("shipments from %s %s", fetcher.Source(), fetcher.Location())

	// Headless mode: no TUI
	if headless {
		var poller *telemetry.Poller
		if *simTelemetry {
			poller = telemetry.NewPoller(
				telemetry.NewSimulated(*seed),
				stateMgr.IDs,
				opts.TelemetryInterval,
				telemetry.WithLogger(logger.Named("telemetry")),
			)
		}
		app := &headlessApp{
			fetcher: fetcher,
			state:   stateMgr,
			poller:  poller,
			builder: shipment.NewBuilder(table, opts.GlobeRadius, opts.ElevationFactor),
			metrics: collector,
			log:     logger,
			isTTY:   term.IsTerminal(int(os.Stdout.Fd())),
			out:     os.Stdout,
		}
		if err := app.run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	// Create TUI model
	model := ui.New(stateMgr, ui.Config{
		Options: opts,
		Table:   table,
		Loader:  textureLoader(opts.TexturePath),
		Logger:  logger,
		Metrics: collector,
		View:    ui.ParseViewMode(*view),
	})

	// Create Bubble Tea program
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Start fetch loop in background
	go runFetchLoop(ctx, fetcher, stateMgr, collector, p, logger)

	if *simTelemetry {
		poller := telemetry.NewPoller(
			telemetry.NewSimulated(*seed),
			stateMgr.IDs,
			opts.TelemetryInterval,
			telemetry.WithLogger(logger.Named("telemetry")),
			telemetry.WithUpdateFunc(func(samples map[string]telemetry.Sample) {
				p.Send(ui.TelemetryMsg{Samples: samples})
			}),
		)
		go poller.Run(ctx)
	}

	// Run TUI (blocks until quit)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return 1
	}
	return 0
}

func applyFlagOverrides(opts *config.Options, refresh time.Duration, routes, shipments, feedURL, texture string) {
	if refresh > 0 {
		opts.RefreshInterval = refresh
	}
	if opts.RefreshInterval < minRefresh {
		opts.RefreshInterval = minRefresh
	} else if opts.RefreshInterval > maxRefresh {
		opts.RefreshInterval = maxRefresh
	}
	if routes != "" {
		opts.RouteTable = routes
	}
	if shipments != "" {
		opts.ShipmentsPath = shipments
	}
	if feedURL != "" {
		opts.FeedURL = feedURL
	}
	if texture != "" {
		opts.TexturePath = texture
	}
}

func newFetcher(opts config.Options) *feed.Fetcher {
	var fopts []feed.FetcherOption
	if opts.ShipmentsPath != "" {
		fopts = append(fopts, feed.WithPath(opts.ShipmentsPath))
	}
	if opts.FeedURL != "" {
		fopts = append(fopts, feed.WithURL(opts.FeedURL))
	}
	return feed.NewFetcher(fopts...)
}

func textureLoader(path string) scene.AssetLoader {
	if path == "" {
		return scene.EmbeddedLoader{}
	}
	return scene.FileLoader{Path: path}
}

func serveMetrics(ctx context.Context, addr string, c *metrics.Collector, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server: %v", err)
	}
}

func runFetchLoop(ctx context.Context, fetcher *feed.Fetcher, stateMgr *state.Manager, m *metrics.Collector, p *tea.Program, logger *logging.Logger) {
	// Do initial fetch immediately
	doFetch(ctx, fetcher, stateMgr, m, p, logger)

	ticker := time.NewTicker(stateMgr.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Fetch loop shutting down")
			return
		case <-ticker.C:
			doFetch(ctx, fetcher, stateMgr, m, p, logger)
		}
	}
}

func doFetch(ctx context.Context, fetcher *feed.Fetcher, stateMgr *state.Manager, m *metrics.Collector, p *tea.Program, logger *logging.Logger) {
	logger.Debug("Fetching shipments...")

	result := fetcher.Fetch(ctx)
	m.ObserveFetch(result.Duration, result.Error)

	if result.Error != nil {
		logger.Error("Fetch failed: %v", result.Error)
		stateMgr.Update(nil, result.Source, result.Duration, result.Error)
		p.Send(ui.ErrorMsg{Error: result.Error})
		return
	}

	logger.Debug("Fetch complete: %d shipments in %v", len(result.Shipments), result.Duration)

	stateMgr.Update(result.Shipments, result.Source, result.Duration, nil)
	p.Send(ui.DataUpdateMsg{Snapshot: stateMgr.Snapshot()})
}
