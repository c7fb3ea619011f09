package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/litescript/ls-freight/internal/logging"
)

// Poller samples a set of shipments on a fixed interval and keeps the
// latest reading per shipment. It is safe for concurrent use.
type Poller struct {
	source   Source
	ids      func() []string
	interval time.Duration
	log      *logging.Logger

	mu       sync.RWMutex
	latest   map[string]Sample
	onUpdate func(map[string]Sample)
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithLogger sets the poller's logger.
func WithLogger(l *logging.Logger) PollerOption {
	return func(p *Poller) {
		p.log = l
	}
}

// WithUpdateFunc registers a callback invoked after every poll round with a
// copy of the latest samples.
func WithUpdateFunc(fn func(map[string]Sample)) PollerOption {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

// NewPoller creates a poller. ids is called each round so that shipments
// added or removed between rounds are picked up.
func NewPoller(source Source, ids func() []string, interval time.Duration, opts ...PollerOption) *Poller {
	p := &Poller{
		source:   source,
		ids:      ids,
		interval: interval,
		latest:   make(map[string]Sample),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	return p
}

// Run polls immediately and then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug("telemetry poller shutting down")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce samples every current shipment once. Readings for shipments no
// longer listed are dropped.
func (p *Poller) PollOnce(ctx context.Context) {
	ids := p.ids()
	fresh := make(map[string]Sample, len(ids))
	for _, id := range ids {
		s, err := p.source.Sample(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("sample %s: %v", id, err)
			if prev, ok := p.Latest(id); ok {
				fresh[id] = prev
			}
			continue
		}
		fresh[id] = s.Normalize()
	}

	p.mu.Lock()
	p.latest = fresh
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(p.Snapshot())
	}
}

// Latest returns the most recent reading for id.
func (p *Poller) Latest(id string) (Sample, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.latest[id]
	return s, ok
}

// Snapshot returns a copy of all current readings.
func (p *Poller) Snapshot() map[string]Sample {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]Sample, len(p.latest))
	for k, v := range p.latest {
		out[k] = v
	}
	return out
}
