// Package shipment maps shipment records to tracks on the globe.
package shipment

import (
	"strings"
)

// Status is the discrete lifecycle state of a shipment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in-transit"
	StatusDelivered Status = "delivered"
	StatusDelayed   Status = "delayed"
)

// FallbackProgress is used for statuses outside the known set.
const FallbackProgress = 0.5

// Color is a display color token (hex or ANSI 256 index).
type Color string

const (
	ColorDelivered Color = "#22C55E" // green
	ColorInTransit Color = "#3B82F6" // blue
	ColorDelayed   Color = "#EF4444" // red
	ColorPending   Color = "#F59E0B" // amber
	ColorNeutral   Color = "#9CA3AF" // gray
)

// Severity ranks how much attention a status needs.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityOK
	SeverityInfo
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

type statusInfo struct {
	progress float64
	color    Color
	severity Severity
	label    string
}

var statusTable = map[Status]statusInfo{
	StatusDelivered: {1.0, ColorDelivered, SeverityOK, "Delivered"},
	StatusInTransit: {0.6, ColorInTransit, SeverityInfo, "In Transit"},
	StatusDelayed:   {0.4, ColorDelayed, SeverityCritical, "Delayed"},
	StatusPending:   {0.1, ColorPending, SeverityWarning, "Pending"},
}

// ParseStatus normalizes free-form status text ("In Transit", "IN_TRANSIT")
// to a Status. Unrecognized input is kept as-is (lowercased) so that it
// still flows through the fallback mappings.
func ParseStatus(s string) Status {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", " ", "-").Replace(norm)
	if norm == "intransit" {
		norm = string(StatusInTransit)
	}
	return Status(norm)
}

// Known reports whether s is one of the four defined statuses.
func (s Status) Known() bool {
	_, ok := statusTable[s]
	return ok
}

// Label returns a human-readable status name.
func (s Status) Label() string {
	if info, ok := statusTable[s]; ok {
		return info.label
	}
	if s == "" {
		return "Unknown"
	}
	return string(s)
}

// Progress maps a status to its fraction along the route.
func Progress(s Status) float64 {
	if info, ok := statusTable[s]; ok {
		return info.progress
	}
	return FallbackProgress
}

// ColorFor maps a status to its display color.
func ColorFor(s Status) Color {
	if info, ok := statusTable[s]; ok {
		return info.color
	}
	return ColorNeutral
}

// SeverityFor maps a status to its severity.
func SeverityFor(s Status) Severity {
	if info, ok := statusTable[s]; ok {
		return info.severity
	}
	return SeverityUnknown
}

// AllStatuses lists the defined statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusInTransit, StatusDelayed, StatusDelivered}
}
