package shipment

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/litescript/ls-freight/internal/geo"
)

// Shipment is the host-supplied shipment record.
type Shipment struct {
	ID                string    `json:"id"`
	Status            Status    `json:"status"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	EstimatedDelivery time.Time `json:"estimated_delivery,omitempty"`
	Carrier           string    `json:"carrier,omitempty"`

	// Route optionally carries coordinates in the record itself; it takes
	// precedence over any coordinate table entry.
	Route *Route `json:"route,omitempty"`
}

// UnmarshalJSON normalizes the status field on decode.
func (s *Shipment) UnmarshalJSON(data []byte) error {
	type alias Shipment
	var raw struct {
		alias
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Shipment(raw.alias)
	s.Status = ParseStatus(raw.Status)
	return nil
}

// DecodeList reads a JSON array of shipments. A top-level object with a
// "shipments" field is also accepted.
func DecodeList(r io.Reader) ([]Shipment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read shipments: %w", err)
	}

	var list []Shipment
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Shipments []Shipment `json:"shipments"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse shipments: %w", err)
	}
	return wrapped.Shipments, nil
}

// Route is a geographic origin/destination pair.
type Route struct {
	Origin      geo.Point `json:"origin" yaml:"origin"`
	Destination geo.Point `json:"destination" yaml:"destination"`
}

// Validate checks both endpoints.
func (r Route) Validate() error {
	if err := r.Origin.Validate(); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if err := r.Destination.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	return nil
}

// DistanceKm returns the great-circle length of the route.
func (r Route) DistanceKm() float64 {
	return geo.DistanceKm(r.Origin, r.Destination)
}

// DemoShipments returns the sample shipment list used when no feed is
// configured.
func DemoShipments(now time.Time) []Shipment {
	return []Shipment{
		{ID: "1", Status: StatusInTransit, Origin: "New York", Destination: "Los Angeles", EstimatedDelivery: now.Add(48 * time.Hour), Carrier: "FedEx"},
		{ID: "2", Status: StatusDelivered, Origin: "London", Destination: "Paris", EstimatedDelivery: now.Add(-24 * time.Hour), Carrier: "DHL"},
		{ID: "3", Status: StatusDelayed, Origin: "Tokyo", Destination: "Sydney", EstimatedDelivery: now.Add(96 * time.Hour), Carrier: "UPS"},
		{ID: "4", Status: StatusPending, Origin: "Singapore", Destination: "Dubai", EstimatedDelivery: now.Add(120 * time.Hour), Carrier: "Maersk"},
		{ID: "5", Status: StatusInTransit, Origin: "Shanghai", Destination: "Rotterdam", EstimatedDelivery: now.Add(240 * time.Hour), Carrier: "COSCO"},
	}
}
