// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Flat map view, container telemetry, Prometheus metrics endpoint
// 0.2.0 - Camera tracking with eased exit, GeoJSON land mask, route table files
// 0.1.0 - Initial release: terminal globe, status-colored arcs, headless summary
