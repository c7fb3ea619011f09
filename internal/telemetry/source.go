package telemetry

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"
)

// Source produces the current reading for a shipment.
type Source interface {
	Sample(ctx context.Context, id string) (Sample, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id string) (Sample, error)

// Sample calls f.
func (f SourceFunc) Sample(ctx context.Context, id string) (Sample, error) {
	return f(ctx, id)
}

// Simulated is a random-walk source for demos. Each shipment starts from a
// baseline seeded by its id, so runs are repeatable for a given seed.
type Simulated struct {
	mu   sync.Mutex
	rng  *rand.Rand
	last map[string]Sample
	now  func() time.Time
}

// NewSimulated creates a simulated source.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{
		rng:  rand.New(rand.NewSource(seed)),
		last: make(map[string]Sample),
		now:  time.Now,
	}
}

// Sample advances the walk for id by one step.
func (s *Simulated) Sample(ctx context.Context, id string) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.last[id]
	if !ok {
		prev = baseline(id)
	}

	next := Sample{
		Temperature:    prev.Temperature + s.jitter(0.8),
		Humidity:       prev.Humidity + s.jitter(2),
		BatteryLevel:   prev.BatteryLevel - s.rng.Float64()*0.5,
		SignalStrength: prev.SignalStrength + s.jitter(5),
		LastUpdate:     s.now(),
	}
	next = next.Clamp()
	next.Health = DeriveHealth(next)
	s.last[id] = next
	return next, nil
}

func (s *Simulated) jitter(scale float64) float64 {
	return (s.rng.Float64()*2 - 1) * scale
}

func baseline(id string) Sample {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	v := float64(h.Sum32()%1000) / 1000

	return Sample{
		Temperature:    4 + 18*v,
		Humidity:       40 + 30*v,
		BatteryLevel:   60 + 40*v,
		SignalStrength: 55 + 40*(1-v),
	}
}
