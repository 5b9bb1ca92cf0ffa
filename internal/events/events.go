// Package events publishes best-effort tick lifecycle notifications over
// NATS for external observability consumers (dashboards, alerting). None
// of this is on the core's correctness path: a publish failure here never
// fails or blocks a tick.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opscenter/triagecore/pkg/messaging"
)

// Subject names for the tick lifecycle stream.
const (
	TickStarted   = "worker.tick.started"
	TickSkipped   = "worker.tick.skipped"
	TickSolved    = "worker.tick.solved"
	TickPublished = "worker.tick.published"
	TickFailed    = "worker.tick.failed"
	AlertRaised   = "worker.alert.shortfall"
)

// TickEvent is the payload published at each lifecycle subject.
type TickEvent struct {
	TickID             uuid.UUID `json:"tick_id"`
	Timestamp          time.Time `json:"timestamp"`
	FingerprintPrefix  string    `json:"fingerprint_prefix,omitempty"`
	HospitalCount      int       `json:"hospital_count,omitempty"`
	PatientCount       int       `json:"patient_count,omitempty"`
	AmbulanceCount     int       `json:"ambulance_count,omitempty"`
	FeasibleTripleCount int      `json:"feasible_triple_count,omitempty"`
	MaxLivesSaved      int       `json:"max_lives_saved,omitempty"`
	CapacityShortfall  int       `json:"capacity_shortfall,omitempty"`
	AmbulanceShortfall int       `json:"ambulance_shortfall,omitempty"`
	Reason             string    `json:"reason,omitempty"`
}

// Publisher emits tick lifecycle events. A nil *messaging.Client is a
// valid, inert Publisher (used when NATS is not configured).
type Publisher struct {
	client *messaging.Client
}

// NewPublisher wraps a messaging client. client may be nil.
func NewPublisher(client *messaging.Client) *Publisher {
	return &Publisher{client: client}
}

// Emit publishes an event on subject and returns any publish error so the
// caller can log it; the poll loop only logs it — tick lifecycle
// visibility is not allowed to affect tick outcome.
func (p *Publisher) Emit(ctx context.Context, subject string, evt TickEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Publish(ctx, subject, evt)
}
