package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/litescript/ls-freight/internal/shipment"
	"github.com/litescript/ls-freight/internal/state"
)

const sampleList = `[
  {"id": "A1", "status": "in-transit", "origin": "New York", "destination": "Los Angeles", "carrier": "UPS"},
  {"id": "A2", "status": "Delivered", "origin": "London", "destination": "Paris"}
]`

func TestFetch_Demo(t *testing.T) {
	f := NewFetcher()
	if f.Source() != SourceDemo {
		t.Fatalf("Source = %q, want demo", f.Source())
	}

	res := f.Fetch(context.Background())
	if res.Error != nil {
		t.Fatalf("Fetch error: %v", res.Error)
	}
	if len(res.Shipments) != len(shipment.DemoShipments(time.Now())) {
		t.Errorf("Shipments = %d, want demo list", len(res.Shipments))
	}
}

func TestFetch_HTTP(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleList))
	}))
	defer srv.Close()

	f := NewFetcher(WithURL(srv.URL), WithTimeout(time.Second))
	res := f.Fetch(context.Background())
	if res.Error != nil {
		t.Fatalf("Fetch error: %v", res.Error)
	}
	if res.Source != SourceHTTP {
		t.Errorf("Source = %q, want http", res.Source)
	}
	if len(res.Shipments) != 2 {
		t.Fatalf("Shipments = %d, want 2", len(res.Shipments))
	}
	if res.Shipments[0].Status != shipment.StatusInTransit {
		t.Errorf("status = %q, want normalized in-transit", res.Shipments[0].Status)
	}
	if res.Shipments[1].Status != shipment.StatusDelivered {
		t.Errorf("status = %q, want delivered", res.Shipments[1].Status)
	}
	if !strings.HasPrefix(gotUA, "ls-freight/") {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if len(res.RawBytes) == 0 {
		t.Error("RawBytes should hold the response body")
	}
}

func TestFetch_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := NewFetcher(WithURL(srv.URL)).Fetch(context.Background())
	if res.Error == nil {
		t.Fatal("expected error for 503")
	}
	if !strings.Contains(res.Error.Error(), "503") {
		t.Errorf("error = %v, want status code", res.Error)
	}
	if res.Shipments != nil {
		t.Error("no shipments expected on error")
	}
}

func TestFetch_HTTPCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewFetcher(WithURL(srv.URL)).Fetch(ctx)
	if !errors.Is(res.Error, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", res.Error)
	}
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipments.json")
	wrapped := `{"shipments": ` + sampleList + `}`
	if err := os.WriteFile(path, []byte(wrapped), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(WithPath(path), WithURL("http://unused.invalid"))
	if f.Source() != SourceFile || f.Location() != path {
		t.Errorf("Source/Location = %q %q", f.Source(), f.Location())
	}

	res := f.Fetch(context.Background())
	if res.Error != nil {
		t.Fatalf("Fetch error: %v", res.Error)
	}
	if len(res.Shipments) != 2 || res.Shipments[0].Carrier != "UPS" {
		t.Errorf("Shipments = %+v", res.Shipments)
	}
}

func TestFetch_FileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{not json`), 0o644)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.json"), os.ErrNotExist},
		{"malformed", bad, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewFetcher(WithPath(tt.path)).Fetch(context.Background())
			if res.Error == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(res.Error, tt.want) {
				t.Errorf("error = %v, want %v", res.Error, tt.want)
			}
		})
	}
}

func TestFetch_FileEmptied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shipments.json")
	if err := os.WriteFile(path, []byte(`[{"id": "1", "status": "in-transit"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(WithPath(path))
	mgr := state.NewManager(state.DefaultConfig())
	builder := shipment.NewBuilder(shipment.DemoTable(), 1, 0.5)

	res := f.Fetch(context.Background())
	if res.Error != nil || len(res.Shipments) != 1 {
		t.Fatalf("first fetch = %d shipments, err %v", len(res.Shipments), res.Error)
	}
	mgr.Update(res.Shipments, res.Source, res.Duration, res.Error)

	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	res = f.Fetch(context.Background())
	if res.Error != nil {
		t.Fatalf("empty feed error: %v", res.Error)
	}
	if res.Shipments == nil || len(res.Shipments) != 0 {
		t.Fatalf("Shipments = %#v, want empty list", res.Shipments)
	}
	mgr.Update(res.Shipments, res.Source, res.Duration, res.Error)

	snap := mgr.Snapshot()
	if len(snap.Shipments) != 0 {
		t.Errorf("store still holds %d shipments", len(snap.Shipments))
	}
	last := snap.Events[len(snap.Events)-1]
	if last.Type != state.EventRemoved || last.ShipmentID != "1" {
		t.Errorf("last event = %+v, want REMOVED #1", last)
	}

	tracks, err := builder.Build(snap.Shipments)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("tracks = %d, want 0", len(tracks))
	}
}

func TestFetch_HTTPTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("["))
		_, _ = w.Write([]byte(strings.Repeat(" ", maxBodyBytes)))
		_, _ = w.Write([]byte("]"))
	}))
	defer srv.Close()

	res := NewFetcher(WithURL(srv.URL)).Fetch(context.Background())
	if !errors.Is(res.Error, ErrFeedTooLarge) {
		t.Errorf("error = %v, want ErrFeedTooLarge", res.Error)
	}
}
