// Package report renders the shipment tracks for headless use: a plain
// text summary table and a JSON snapshot.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/litescript/ls-freight/internal/flatmap"
	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/state"
	"github.com/litescript/ls-freight/internal/telemetry"
)

// SnapshotExport is the JSON-serializable state of the shipment map.
type SnapshotExport struct {
	FetchedAt    time.Time      `json:"fetched_at"`
	Source       string         `json:"source,omitempty"`
	Tracks       []TrackExport  `json:"tracks"`
	StatusCounts map[string]int `json:"status_counts"`
	Events       []state.Event  `json:"events,omitempty"`
}

// Vec3 is a JSON-friendly globe position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FlatPoint is a JSON-friendly flat map position in percent.
type FlatPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TrackExport is one shipment with its derived display fields.
type TrackExport struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Carrier     string            `json:"carrier,omitempty"`
	Origin      string            `json:"origin"`
	Destination string            `json:"destination"`
	Progress    float64           `json:"progress"`
	Color       string            `json:"color"`
	Severity    string            `json:"severity"`
	Routed      bool              `json:"routed"`
	DistanceKm  float64           `json:"distance_km,omitempty"`
	Mover       *Vec3             `json:"mover,omitempty"`
	FlatMover   *FlatPoint        `json:"flat_mover,omitempty"`
	Telemetry   *telemetry.Sample `json:"telemetry,omitempty"`
}

// ExportSnapshot converts tracks and optional telemetry to an exportable
// form. A nil snapshot leaves source and events empty.
func ExportSnapshot(tracks []shipment.Track, snap *state.Snapshot, env map[string]telemetry.Sample, fetchedAt time.Time) *SnapshotExport {
	export := &SnapshotExport{
		FetchedAt:    fetchedAt,
		Tracks:       make([]TrackExport, 0, len(tracks)),
		StatusCounts: make(map[string]int),
	}
	if snap != nil {
		export.Source = snap.Source
		export.Events = snap.Events
	}

	for _, t := range tracks {
		te := TrackExport{
			ID:          t.ID,
			Status:      string(t.Status),
			Carrier:     t.Shipment.Carrier,
			Origin:      t.Shipment.Origin,
			Destination: t.Shipment.Destination,
			Progress:    t.Progress,
			Color:       string(t.Color()),
			Severity:    shipment.SeverityFor(t.Status).String(),
			Routed:      t.Routed,
			DistanceKm:  t.DistanceKm(),
		}
		if pos, ok := t.Position(); ok {
			te.Mover = &Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
			arc := flatmap.NewArc(flatmap.Project(t.Origin), flatmap.Project(t.Destination))
			p := arc.At(t.Progress)
			te.FlatMover = &FlatPoint{X: p.X, Y: p.Y}
		}
		if s, ok := env[t.ID]; ok {
			s = s.Normalize()
			te.Telemetry = &s
		}
		export.Tracks = append(export.Tracks, te)
		export.StatusCounts[string(t.Status)]++
	}

	return export
}

// WriteJSON writes the snapshot as JSON to the given writer.
func (s *SnapshotExport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// SummaryRow represents one row in the summary table.
type SummaryRow struct {
	ID       string
	Status   shipment.Status
	Carrier  string
	Route    string
	Progress float64
	Distance string
	Health   telemetry.Health
	Severity shipment.Severity
}

// GenerateSummaryRows creates summary rows, most severe first.
func GenerateSummaryRows(tracks []shipment.Track, env map[string]telemetry.Sample) []SummaryRow {
	rows := make([]SummaryRow, 0, len(tracks))
	for _, t := range tracks {
		row := SummaryRow{
			ID:       t.ID,
			Status:   t.Status,
			Carrier:  t.Shipment.Carrier,
			Route:    t.Shipment.Origin + " > " + t.Shipment.Destination,
			Progress: t.Progress,
			Distance: "-",
			Severity: shipment.SeverityFor(t.Status),
		}
		if t.Routed {
			row.Distance = FormatDistance(t.DistanceKm())
		}
		if s, ok := env[t.ID]; ok {
			row.Health = s.Normalize().Health
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Severity > rows[j].Severity
	})
	return rows
}

// WriteSummaryTable writes a text table to the given writer.
func WriteSummaryTable(w io.Writer, tracks []shipment.Track, env map[string]telemetry.Sample, timestamp time.Time) {
	rows := GenerateSummaryRows(tracks, env)

	fmt.Fprintf(w, "Shipments @ %s\n", timestamp.Format(time.RFC3339))
	fmt.Fprintln(w, strings.Repeat("─", 86))

	if len(rows) == 0 {
		fmt.Fprintln(w, "No shipments")
		return
	}

	fmt.Fprintf(w, "%-8s %-11s %-10s %-30s %-5s %-10s %-8s\n",
		"ID", "Status", "Carrier", "Route", "Prog", "Distance", "Health")
	fmt.Fprintln(w, strings.Repeat("─", 86))

	unrouted := 0
	for _, r := range rows {
		health := string(r.Health)
		if health == "" {
			health = "-"
		}
		fmt.Fprintf(w, "%-8s %-11s %-10s %-30s %4.0f%% %-10s %-8s\n",
			truncateStr(r.ID, 8),
			truncateStr(r.Status.Label(), 11),
			truncateStr(r.Carrier, 10),
			truncateStr(r.Route, 30),
			r.Progress*100,
			r.Distance,
			health,
		)
		if r.Distance == "-" {
			unrouted++
		}
	}

	fmt.Fprintf(w, "\nTotal: %d shipments", len(rows))
	if unrouted > 0 {
		fmt.Fprintf(w, " (%d without coordinates)", unrouted)
	}
	fmt.Fprintln(w)
}

// WriteEvents writes the most recent limit events, newest first.
func WriteEvents(w io.Writer, events []state.Event, limit int) {
	fmt.Fprintln(w, "Recent events")
	fmt.Fprintln(w, strings.Repeat("─", 40))
	if len(events) == 0 {
		fmt.Fprintln(w, "No events")
		return
	}

	n := 0
	for i := len(events) - 1; i >= 0 && n < limit; i-- {
		fmt.Fprintln(w, FormatEvent(events[i]))
		n++
	}
}

// FormatEvent renders one event as a single line.
func FormatEvent(e state.Event) string {
	ts := e.Timestamp.Format("15:04:05")
	switch e.Type {
	case state.EventAdded:
		return fmt.Sprintf("%s  + #%s %s", ts, e.ShipmentID, e.NewStatus.Label())
	case state.EventRemoved:
		return fmt.Sprintf("%s  - #%s", ts, e.ShipmentID)
	case state.EventStatusChanged:
		return fmt.Sprintf("%s  ~ #%s %s → %s", ts, e.ShipmentID, e.OldStatus.Label(), e.NewStatus.Label())
	default:
		return fmt.Sprintf("%s  ? #%s", ts, e.ShipmentID)
	}
}

// FormatDistance renders kilometres compactly.
func FormatDistance(km float64) string {
	if km >= 10000 {
		return fmt.Sprintf("%.1fk km", km/1000)
	}
	return fmt.Sprintf("%.0f km", km)
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
