// Package loading tracks in-flight operations so a UI can show a busy
// indicator. It is a process-wide signal: it says that some operation is
// running, not which caller started it.
package loading

import (
	"errors"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Tracker records in-flight operations. Each Start hands out a token that
// is released exactly once, so the count never drops below zero.
type Tracker struct {
	mu       sync.Mutex
	nextID   uint64
	inflight map[uint64]string
	gauge    *prometheus.GaugeVec
}

// Option configures a Tracker.
type Option func(*Tracker) error

// WithRegisterer exports the in-flight count as the gauge
// warikan_client_inflight_operations{operation}. Registering twice against
// the same registerer reuses the existing gauge.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(t *Tracker) error {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "warikan",
			Subsystem: "client",
			Name:      "inflight_operations",
			Help:      "Number of API operations currently in flight.",
		}, []string{"operation"})

		if err := reg.Register(gauge); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
			existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				return err
			}
			gauge = existing
		}
		t.gauge = gauge
		return nil
	}
}

// NewTracker creates an idle Tracker.
func NewTracker(opts ...Option) (*Tracker, error) {
	t := &Tracker{inflight: make(map[uint64]string)}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Operation is the token for one in-flight operation.
type Operation struct {
	tracker *Tracker
	id      uint64
	name    string
	once    sync.Once
}

// Start marks an operation named name as in flight.
func (t *Tracker) Start(name string) *Operation {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.inflight[id] = name
	t.mu.Unlock()

	if t.gauge != nil {
		t.gauge.WithLabelValues(name).Inc()
	}
	return &Operation{tracker: t, id: id, name: name}
}

// Done marks the operation finished. Calling it again has no effect.
func (o *Operation) Done() {
	o.once.Do(func() {
		o.tracker.mu.Lock()
		delete(o.tracker.inflight, o.id)
		o.tracker.mu.Unlock()

		if o.tracker.gauge != nil {
			o.tracker.gauge.WithLabelValues(o.name).Dec()
		}
	})
}

// Name returns the operation name given to Start.
func (o *Operation) Name() string {
	return o.name
}

// IsLoading reports whether any operation is in flight.
func (t *Tracker) IsLoading() bool {
	return t.Count() > 0
}

// Count returns the number of operations in flight.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// Operations returns the names of in-flight operations, sorted.
func (t *Tracker) Operations() []string {
	t.mu.Lock()
	names := make([]string, 0, len(t.inflight))
	for _, name := range t.inflight {
		names = append(names, name)
	}
	t.mu.Unlock()

	sort.Strings(names)
	return names
}
