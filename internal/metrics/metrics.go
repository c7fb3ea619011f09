// Package metrics exposes Prometheus instrumentation for the freight views.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Asset load outcomes.
const (
	AssetLoaded   = "loaded"
	AssetTimedOut = "timeout"
	AssetFailed   = "failed"
)

// Collector bundles the view metrics. A nil *Collector is valid and
// records nothing, so engines can run uninstrumented.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks            *prometheus.CounterVec
	SelectionChanges *prometheus.CounterVec
	AssetLoads       *prometheus.CounterVec
	Tracks           *prometheus.GaugeVec
	TrackingActive   *prometheus.GaugeVec
	FeedFetches      *prometheus.CounterVec
	FeedDuration     prometheus.Histogram
}

// NewCollector registers metrics against reg, defaulting to the global
// registry when nil. Re-registering against the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Ticks, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_view_ticks_total",
		Help: "Animation ticks processed, labeled by view kind.",
	}, []string{"view"})); err != nil {
		return nil, err
	}
	if c.SelectionChanges, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_selection_changes_total",
		Help: "Selection changes, labeled by view kind and action (select, deselect, cleared).",
	}, []string{"view", "action"})); err != nil {
		return nil, err
	}
	if c.AssetLoads, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_asset_loads_total",
		Help: "Globe asset acquisition attempts by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if c.Tracks, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "freight_tracks",
		Help: "Shipments currently displayed, split by whether a route was assigned.",
	}, []string{"view", "routed"})); err != nil {
		return nil, err
	}
	if c.TrackingActive, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "freight_camera_tracking",
		Help: "1 while the camera is tracking a shipment.",
	}, []string{"view"})); err != nil {
		return nil, err
	}
	if c.FeedFetches, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freight_feed_fetches_total",
		Help: "Shipment feed fetches by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}

	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "freight_feed_fetch_duration_seconds",
		Help:    "Shipment feed fetch latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
	if err := reg.Register(hist); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(prometheus.Histogram)
		if !ok {
			return nil, err
		}
		hist = existing
	}
	c.FeedDuration = hist

	return c, nil
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ObserveTick counts one processed tick.
func (c *Collector) ObserveTick(view string) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(view).Inc()
}

// ObserveSelection counts a selection change.
func (c *Collector) ObserveSelection(view, action string) {
	if c == nil {
		return
	}
	c.SelectionChanges.WithLabelValues(view, action).Inc()
}

// ObserveAssetLoad counts an asset acquisition outcome.
func (c *Collector) ObserveAssetLoad(result string) {
	if c == nil {
		return
	}
	c.AssetLoads.WithLabelValues(result).Inc()
}

// SetTracks records how many tracks a view displays.
func (c *Collector) SetTracks(view string, routed, unrouted int) {
	if c == nil {
		return
	}
	c.Tracks.WithLabelValues(view, "true").Set(float64(routed))
	c.Tracks.WithLabelValues(view, "false").Set(float64(unrouted))
}

// SetTracking records whether the camera is tracking.
func (c *Collector) SetTracking(view string, on bool) {
	if c == nil {
		return
	}
	v := 0.0
	if on {
		v = 1
	}
	c.TrackingActive.WithLabelValues(view).Set(v)
}

// ObserveFetch records a feed fetch.
func (c *Collector) ObserveFetch(d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.FeedFetches.WithLabelValues(result).Inc()
	c.FeedDuration.Observe(d.Seconds())
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return cv, nil
}

func registerGaugeVec(reg prometheus.Registerer, gv *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(gv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return gv, nil
}
