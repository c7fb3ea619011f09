package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/state"
	"github.com/litescript/ls-freight/internal/telemetry"
)

func demoTracks(t *testing.T) []shipment.Track {
	t.Helper()
	tracks, err := shipment.NewBuilder(shipment.DemoTable(), 1, 0.5).Build(
		shipment.DemoShipments(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatal(err)
	}
	lost, err := shipment.NewBuilder(shipment.NewCoordinateTable(), 1, 0.5).BuildOne(0,
		shipment.Shipment{ID: "X", Status: "lost", Origin: "Nowhere", Destination: "Elsewhere"})
	if err != nil {
		t.Fatal(err)
	}
	tracks = append(tracks, lost)
	return tracks
}

func TestExportSnapshot(t *testing.T) {
	tracks := demoTracks(t)
	fetchedAt := time.Date(2024, 1, 15, 10, 30, 5, 0, time.UTC)
	snap := &state.Snapshot{
		Source: "demo",
		Events: []state.Event{{Type: state.EventAdded, ShipmentID: "1"}},
	}
	env := map[string]telemetry.Sample{
		"1": {Temperature: 20, Humidity: 40, BatteryLevel: 5, SignalStrength: 90},
	}

	export := ExportSnapshot(tracks, snap, env, fetchedAt)

	if export.FetchedAt != fetchedAt {
		t.Errorf("FetchedAt = %v, want %v", export.FetchedAt, fetchedAt)
	}
	if export.Source != "demo" || len(export.Events) != 1 {
		t.Errorf("Source/Events = %q %d", export.Source, len(export.Events))
	}
	if len(export.Tracks) != len(tracks) {
		t.Fatalf("Tracks = %d, want %d", len(export.Tracks), len(tracks))
	}

	first := export.Tracks[0]
	if first.Color != string(shipment.ColorInTransit) || first.Progress != 0.6 {
		t.Errorf("first track = %+v", first)
	}
	if first.Mover == nil || first.FlatMover == nil {
		t.Fatal("routed track should carry mover positions")
	}
	if first.DistanceKm < 3900 || first.DistanceKm > 4000 {
		t.Errorf("New York to Los Angeles = %.0f km", first.DistanceKm)
	}
	if first.Telemetry == nil || first.Telemetry.Health != telemetry.HealthCritical {
		t.Errorf("telemetry = %+v, want derived critical health", first.Telemetry)
	}

	if export.StatusCounts[string(shipment.StatusInTransit)] != 2 {
		t.Errorf("StatusCounts = %v", export.StatusCounts)
	}
}

func TestExportSnapshot_Unrouted(t *testing.T) {
	list := []shipment.Shipment{{ID: "Z", Status: shipment.StatusPending}}
	tracks, err := shipment.NewBuilder(shipment.NewCoordinateTable(), 1, 0.5).Build(list)
	if err != nil {
		t.Fatal(err)
	}

	export := ExportSnapshot(tracks, nil, nil, time.Time{})
	tr := export.Tracks[0]
	if tr.Routed || tr.Mover != nil || tr.FlatMover != nil || tr.DistanceKm != 0 {
		t.Errorf("unrouted export = %+v", tr)
	}
}

func TestWriteJSON(t *testing.T) {
	export := ExportSnapshot(demoTracks(t), nil, nil, time.Unix(0, 0).UTC())

	var buf bytes.Buffer
	if err := export.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, key := range []string{"fetched_at", "tracks", "status_counts"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if !strings.Contains(buf.String(), `"flat_mover"`) {
		t.Error("routed tracks should export flat map positions")
	}
}

func TestGenerateSummaryRows_SeverityOrder(t *testing.T) {
	rows := GenerateSummaryRows(demoTracks(t), nil)
	if len(rows) == 0 {
		t.Fatal("no rows")
	}
	if rows[0].Status != shipment.StatusDelayed {
		t.Errorf("first row status = %q, want delayed", rows[0].Status)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Severity > rows[i-1].Severity {
			t.Errorf("rows not sorted by severity at %d", i)
		}
	}
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	WriteSummaryTable(&buf, demoTracks(t), nil, ts)

	out := buf.String()
	for _, want := range []string{
		"Shipments @ 2024-01-15T10:30:00Z",
		"In Transit",
		"Delayed",
		"Total: 6 shipments (1 without coordinates)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestWriteSummaryTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteSummaryTable(&buf, nil, nil, time.Now())
	if !strings.Contains(buf.String(), "No shipments") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{340, "340 km"},
		{3936, "3936 km"},
		{12345, "12.3k km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}

func TestTruncateStr(t *testing.T) {
	if got := truncateStr("Singapore > Dubai", 8); got != "Singap.." {
		t.Errorf("truncateStr = %q", got)
	}
	if got := truncateStr("abc", 2); got != "ab" {
		t.Errorf("truncateStr short = %q", got)
	}
}

func TestWriteEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []state.Event{
		{Type: state.EventAdded, Timestamp: base, ShipmentID: "1", NewStatus: shipment.StatusInTransit},
		{Type: state.EventStatusChanged, Timestamp: base.Add(time.Minute), ShipmentID: "1",
			OldStatus: shipment.StatusInTransit, NewStatus: shipment.StatusDelivered},
		{Type: state.EventRemoved, Timestamp: base.Add(2 * time.Minute), ShipmentID: "2"},
	}

	var buf bytes.Buffer
	WriteEvents(&buf, events, 2)
	out := buf.String()

	if !strings.Contains(out, "12:02:00  - #2") {
		t.Errorf("missing removal line:\n%s", out)
	}
	if !strings.Contains(out, "In Transit → Delivered") {
		t.Errorf("missing status change line:\n%s", out)
	}
	if strings.Contains(out, "+ #1") {
		t.Errorf("limit not applied:\n%s", out)
	}
	if strings.Index(out, "- #2") > strings.Index(out, "~ #1") {
		t.Errorf("events not newest first:\n%s", out)
	}

	buf.Reset()
	WriteEvents(&buf, nil, 5)
	if !strings.Contains(buf.String(), "No events") {
		t.Errorf("empty output = %q", buf.String())
	}
}
