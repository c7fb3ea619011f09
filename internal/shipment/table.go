package shipment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-freight/internal/geo"
)

// CoordinateTable supplies geographic routes for shipments.
//
// Lookup order: coordinates embedded in the shipment record, then an entry
// keyed by shipment ID, then the indexed list cycled by the shipment's
// position in the input. A table with no entries assigns nothing.
type CoordinateTable struct {
	indexed []Route
	byID    map[string]Route
}

// NewCoordinateTable creates a table cycling over the given routes.
func NewCoordinateTable(routes ...Route) *CoordinateTable {
	return &CoordinateTable{
		indexed: append([]Route(nil), routes...),
		byID:    make(map[string]Route),
	}
}

// Set assigns a route to a specific shipment ID.
func (t *CoordinateTable) Set(id string, r Route) {
	t.byID[id] = r
}

// Len returns the number of indexed and ID-keyed entries.
func (t *CoordinateTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.indexed) + len(t.byID)
}

// Lookup returns the route for the shipment at position index.
func (t *CoordinateTable) Lookup(index int, s Shipment) (Route, bool) {
	if s.Route != nil {
		return *s.Route, true
	}
	if t == nil {
		return Route{}, false
	}
	if r, ok := t.byID[s.ID]; ok {
		return r, true
	}
	if len(t.indexed) == 0 || index < 0 {
		return Route{}, false
	}
	return t.indexed[index%len(t.indexed)], true
}

// DemoTable returns the city pairs used for sample data: four indexed
// routes plus an id-keyed entry for demo shipment "5".
func DemoTable() *CoordinateTable {
	t := NewCoordinateTable(
		Route{Origin: geo.Point{Lat: 40.7128, Lon: -74.0060}, Destination: geo.Point{Lat: 34.0522, Lon: -118.2437}}, // New York → Los Angeles
		Route{Origin: geo.Point{Lat: 51.5074, Lon: -0.1278}, Destination: geo.Point{Lat: 48.8566, Lon: 2.3522}},     // London → Paris
		Route{Origin: geo.Point{Lat: 35.6762, Lon: 139.6503}, Destination: geo.Point{Lat: -33.8688, Lon: 151.2093}}, // Tokyo → Sydney
		Route{Origin: geo.Point{Lat: 1.3521, Lon: 103.8198}, Destination: geo.Point{Lat: 25.2048, Lon: 55.2708}},    // Singapore → Dubai
	)
	t.Set("5", Route{Origin: geo.Point{Lat: 31.2304, Lon: 121.4737}, Destination: geo.Point{Lat: 51.9244, Lon: 4.4777}}) // Shanghai → Rotterdam
	return t
}

// yamlTable is the on-disk YAML layout of a coordinate table.
type yamlTable struct {
	Routes []Route          `yaml:"routes"`
	ByID   map[string]Route `yaml:"by_id"`
}

// LoadTableYAML parses a YAML coordinate table:
//
//	routes:
//	  - origin: {lat: 40.71, lon: -74.00}
//	    destination: {lat: 34.05, lon: -118.24}
//	by_id:
//	  SHP-7: {origin: {...}, destination: {...}}
func LoadTableYAML(r io.Reader) (*CoordinateTable, error) {
	var raw yamlTable
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	t := NewCoordinateTable()
	for i, route := range raw.Routes {
		if err := route.Validate(); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		t.indexed = append(t.indexed, route)
	}
	for id, route := range raw.ByID {
		if err := route.Validate(); err != nil {
			return nil, fmt.Errorf("route %q: %w", id, err)
		}
		t.byID[id] = route
	}
	return t, nil
}

// LoadTableGeoJSON parses a FeatureCollection of LineString features. Each
// line's first and last vertices become origin and destination. Features
// with a "shipment_id" property are keyed by ID; the rest are indexed in
// file order.
func LoadTableGeoJSON(r io.Reader) (*CoordinateTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse route table: %w", err)
	}

	t := NewCoordinateTable()
	for i, f := range fc.Features {
		line, ok := f.Geometry.(orb.LineString)
		if !ok || len(line) < 2 {
			return nil, fmt.Errorf("feature %d: want LineString with at least 2 points, got %s", i, geometryType(f.Geometry))
		}
		route := Route{
			Origin:      geo.FromOrb(line[0]),
			Destination: geo.FromOrb(line[len(line)-1]),
		}
		if err := route.Validate(); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		if id := f.Properties.MustString("shipment_id", ""); id != "" {
			t.byID[id] = route
		} else {
			t.indexed = append(t.indexed, route)
		}
	}
	return t, nil
}

// LoadTableFile reads a route table, choosing the format by extension:
// .geojson and .json are GeoJSON, anything else is YAML. An empty path
// returns the demo table.
func LoadTableFile(path string) (*CoordinateTable, error) {
	if path == "" {
		return DemoTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open route table: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return LoadTableGeoJSON(f)
	default:
		return LoadTableYAML(f)
	}
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null geometry"
	}
	return g.GeoJSONType()
}
