// Package config holds the tunable options of the globe and flat-map views.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options configures a view instance. Every field is cosmetic and has a
// default; a zero-valued field in a YAML file keeps the default.
type Options struct {
	// Camera distance from the globe centre, in globe radii.
	InitialZoom float64 `yaml:"initial_zoom"`
	MinZoom     float64 `yaml:"min_zoom"`
	MaxZoom     float64 `yaml:"max_zoom"`

	// Globe spin applied on each tick while rotation is on.
	RotationSpeedDegPerTick float64 `yaml:"rotation_speed_deg_per_tick"`

	// Camera orbit drift while nothing is selected.
	AutoRotateWhenIdle        bool    `yaml:"auto_rotate_when_idle"`
	AutoRotateSpeedDegPerTick float64 `yaml:"auto_rotate_speed_deg_per_tick"`
	DragCooldownTicks         int     `yaml:"drag_cooldown_ticks"`

	// Outward lift of route arc midpoints.
	ElevationFactor float64 `yaml:"elevation_factor"`
	GlobeRadius     float64 `yaml:"globe_radius"`

	// Ticks spent easing the camera back to orbit after tracking ends.
	TrackingTransitionTicks int `yaml:"tracking_transition_ticks"`

	AssetTimeout      time.Duration `yaml:"asset_timeout"`
	FrameInterval     time.Duration `yaml:"frame_interval"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"`

	// Optional data files.
	TexturePath   string `yaml:"texture_path"`
	RouteTable    string `yaml:"route_table"`
	ShipmentsPath string `yaml:"shipments"`
	FeedURL       string `yaml:"feed_url"`
}

// Default returns the stock configuration.
func Default() Options {
	return Options{
		InitialZoom:               3.0,
		MinZoom:                   1.6,
		MaxZoom:                   8.0,
		RotationSpeedDegPerTick:   0.5,
		AutoRotateWhenIdle:        true,
		AutoRotateSpeedDegPerTick: 0.25,
		DragCooldownTicks:         40,
		ElevationFactor:           0.5,
		GlobeRadius:               1.0,
		TrackingTransitionTicks:   15,
		AssetTimeout:              5 * time.Second,
		FrameInterval:             50 * time.Millisecond,
		TelemetryInterval:         5 * time.Second,
		RefreshInterval:           30 * time.Second,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Options, error) {
	opts := Default()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("config %s: %w", path, err)
	}
	return opts, nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid option")

// Validate checks ranges that would otherwise produce a broken view.
func (o Options) Validate() error {
	switch {
	case o.GlobeRadius <= 0:
		return fmt.Errorf("%w: globe_radius must be > 0, got %v", ErrInvalid, o.GlobeRadius)
	case o.MinZoom <= 1:
		return fmt.Errorf("%w: min_zoom must be > 1 globe radius, got %v", ErrInvalid, o.MinZoom)
	case o.MaxZoom < o.MinZoom:
		return fmt.Errorf("%w: max_zoom %v < min_zoom %v", ErrInvalid, o.MaxZoom, o.MinZoom)
	case o.ElevationFactor < 0:
		return fmt.Errorf("%w: elevation_factor must be >= 0, got %v", ErrInvalid, o.ElevationFactor)
	case o.TrackingTransitionTicks < 0:
		return fmt.Errorf("%w: tracking_transition_ticks must be >= 0", ErrInvalid)
	case o.FrameInterval <= 0:
		return fmt.Errorf("%w: frame_interval must be > 0", ErrInvalid)
	}
	return nil
}

// CameraDistance converts a zoom in globe radii to a camera distance.
func (o Options) CameraDistance(zoom float64) float64 {
	return zoom * o.GlobeRadius
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func (o Options) ClampZoom(z float64) float64 {
	if z < o.MinZoom {
		return o.MinZoom
	}
	if z > o.MaxZoom {
		return o.MaxZoom
	}
	return z
}
