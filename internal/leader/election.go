// Package leader serializes the poll loop's SOLVE/PUBLISH phases across
// replicas of the worker using an etcd campaign: only the current
// campaign winner runs ticks at all (followers do not fetch inputs
// either). The poll loop rejoins and re-campaigns if the lease is lost.
package leader

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.uber.org/zap"
)

// Elector tracks this process's leadership state. A nil *Elector (no
// endpoints configured) is always leader, which lets a single-replica
// deployment skip etcd entirely.
type Elector struct {
	client   *clientv3.Client
	session  *concurrency.Session
	election *concurrency.Election
	prefix   string
	leaseTTL int
	log      *zap.Logger

	isLeader atomic.Bool
}

// New dials etcd and prepares (but does not yet start) a campaign. If
// endpoints is empty, New returns a nil *Elector and the caller should
// treat that as standalone, always-leader operation.
func New(endpoints []string, prefix string, leaseTTLSeconds int, log *zap.Logger) (*Elector, error) {
	if len(endpoints) == 0 {
		return nil, nil
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("leader: dial etcd: %w", err)
	}

	if leaseTTLSeconds <= 0 {
		leaseTTLSeconds = 10
	}

	e := &Elector{
		client:   client,
		prefix:   prefix,
		leaseTTL: leaseTTLSeconds,
		log:      log,
	}
	if err := e.newSession(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return e, nil
}

func (e *Elector) newSession(ctx context.Context) error {
	session, err := concurrency.NewSession(e.client, concurrency.WithTTL(e.leaseTTL))
	if err != nil {
		return fmt.Errorf("leader: create session: %w", err)
	}
	e.session = session
	e.election = concurrency.NewElection(session, e.prefix)
	return nil
}

// Campaign blocks until this process becomes leader or ctx is cancelled.
// Lease loss is signalled through Done; Rejoin then resets isLeader and
// builds a fresh session so the caller can campaign again.
func (e *Elector) Campaign(ctx context.Context, value string) error {
	if e == nil {
		return nil
	}
	if err := e.election.Campaign(ctx, value); err != nil {
		return fmt.Errorf("leader: campaign: %w", err)
	}
	e.isLeader.Store(true)
	if e.log != nil {
		e.log.Info("acquired leadership", zap.String("value", value))
	}
	return nil
}

// IsLeader reports current leadership. A nil Elector is always leader.
func (e *Elector) IsLeader() bool {
	if e == nil {
		return true
	}
	return e.isLeader.Load()
}

// Done returns a channel closed when the underlying session (and thus
// leadership) is lost. A nil Elector returns nil, which blocks forever
// in a select, matching "never loses leadership" semantics.
func (e *Elector) Done() <-chan struct{} {
	if e == nil {
		return nil
	}
	return e.session.Done()
}

// Resign releases leadership and closes the session, used on graceful
// shutdown so the next campaign starts cleanly elsewhere.
func (e *Elector) Resign(ctx context.Context) error {
	if e == nil {
		return nil
	}
	e.isLeader.Store(false)
	if e.election != nil {
		_ = e.election.Resign(ctx)
	}
	if e.session != nil {
		_ = e.session.Close()
	}
	return e.client.Close()
}

// Rejoin is called after the session is lost to build a fresh session
// and election so the caller can campaign again.
func (e *Elector) Rejoin(ctx context.Context) error {
	if e == nil {
		return nil
	}
	e.isLeader.Store(false)
	return e.newSession(ctx)
}
