package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/litescript/ls-freight/internal/feed"
	"github.com/litescript/ls-freight/internal/logging"
	"github.com/litescript/ls-freight/internal/metrics"
	"github.com/litescript/ls-freight/internal/report"
	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/state"
	"github.com/litescript/ls-freight/internal/telemetry"
)

// headlessApp prints summaries, snapshots and events instead of running the TUI.
type headlessApp struct {
	fetcher *feed.Fetcher
	state   *state.Manager
	poller  *telemetry.Poller
	builder *shipment.Builder
	metrics *metrics.Collector
	log     *logging.Logger
	isTTY   bool
	out     io.Writer
}

func (a *headlessApp) run(ctx context.Context) error {
	// Single run
	if watchInterval == 0 {
		return a.outputOnce(ctx)
	}

	// Watch mode: repeat at interval
	if err := a.outputOnce(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fmt.Fprintln(a.out)
			if err := a.outputOnce(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
}

func (a *headlessApp) outputOnce(ctx context.Context) error {
	result := a.fetcher.Fetch(ctx)
	a.metrics.ObserveFetch(result.Duration, result.Error)
	if result.Error != nil {
		a.state.Update(nil, result.Source, result.Duration, result.Error)
		return result.Error
	}

	a.state.Update(result.Shipments, result.Source, result.Duration, nil)
	snap := a.state.Snapshot()

	tracks, err := a.builder.Build(snap.Shipments)
	if err != nil {
		return fmt.Errorf("build tracks: %w", err)
	}

	var env map[string]telemetry.Sample
	if a.poller != nil {
		a.poller.PollOnce(ctx)
		env = a.poller.Snapshot()
	}

	// Export JSON if requested
	if snapshotPath != "" {
		if err := a.writeSnapshot(report.ExportSnapshot(tracks, &snap, env, snap.LastFetch)); err != nil {
			return err
		}
	}

	if summaryMode {
		report.WriteSummaryTable(a.out, tracks, env, snap.LastFetch)
	}

	if eventsMode {
		fmt.Fprintln(a.out)
		report.WriteEvents(a.out, snap.Events, 10)
	}

	if beepMode && a.isTTY && watchInterval > 0 {
		for _, e := range snap.Events {
			if e.Type == state.EventStatusChanged && time.Since(e.Timestamp) < watchInterval+time.Second {
				fmt.Fprint(a.out, "\a")
				break
			}
		}
	}

	a.log.Debug("headless output: %d tracks from %s", len(tracks), snap.Source)
	return nil
}

func (a *headlessApp) writeSnapshot(export *report.SnapshotExport) error {
	if snapshotPath == "-" {
		if err := export.WriteJSON(a.out); err != nil {
			return fmt.Errorf("write JSON to stdout: %w", err)
		}
		return nil
	}

	f, err := os.Create(snapshotPath)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()
	if err := export.WriteJSON(f); err != nil {
		return fmt.Errorf("write JSON to file: %w", err)
	}
	return nil
}
