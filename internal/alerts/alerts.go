// Package alerts raises shortfall alerts when a tick's result shows the
// fleet is structurally short of beds or ambulances. This is observability,
// not a correctness concern: the tick still publishes normally either way.
package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opscenter/triagecore/internal/events"
)

// Alert records a single raised shortfall condition.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"` // "capacity" or "ambulance"
	Amount    int       `json:"amount"`
	Triggered time.Time `json:"triggered"`
}

// Engine tracks the most recent shortfall alert per kind, so repeated
// identical shortfalls across consecutive ticks don't need special
// handling by callers (they can just always call Observe).
type Engine struct {
	mu      sync.Mutex
	last    map[string]Alert
	emitter *events.Publisher
}

// NewEngine builds an alert engine. emitter may be nil.
func NewEngine(emitter *events.Publisher) *Engine {
	return &Engine{
		last:    make(map[string]Alert),
		emitter: emitter,
	}
}

// Observe checks a tick's shortfall numbers and raises alerts for any
// positive shortfall, best-effort publishing each over NATS.
func (e *Engine) Observe(ctx context.Context, tickID uuid.UUID, capacityShortfall, ambulanceShortfall int) []Alert {
	var raised []Alert

	if capacityShortfall > 0 {
		raised = append(raised, e.raise(ctx, tickID, "capacity", capacityShortfall))
	}
	if ambulanceShortfall > 0 {
		raised = append(raised, e.raise(ctx, tickID, "ambulance", ambulanceShortfall))
	}

	return raised
}

func (e *Engine) raise(ctx context.Context, tickID uuid.UUID, kind string, amount int) Alert {
	alert := Alert{
		ID:        uuid.New(),
		Kind:      kind,
		Amount:    amount,
		Triggered: time.Now(),
	}

	e.mu.Lock()
	e.last[kind] = alert
	e.mu.Unlock()

	if e.emitter != nil {
		e.emitter.Emit(ctx, events.AlertRaised, events.TickEvent{
			TickID:    tickID,
			Timestamp: alert.Triggered,
			Reason:    kind + "_shortfall",
		})
	}

	return alert
}

// Last returns the most recently raised alert of the given kind, if any.
func (e *Engine) Last(kind string) (Alert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.last[kind]
	return a, ok
}
