// Package pollloop drives the optimization pipeline on a fixed interval:
// fetch, fingerprint, decide whether to solve, and publish. It owns the
// lifecycle of every component wired into a tick and is the only place
// that sequences them.
package pollloop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opscenter/triagecore/internal/alerts"
	"github.com/opscenter/triagecore/internal/events"
	"github.com/opscenter/triagecore/internal/feasibility"
	"github.com/opscenter/triagecore/internal/fingerprint"
	"github.com/opscenter/triagecore/internal/ingest"
	"github.com/opscenter/triagecore/internal/leader"
	"github.com/opscenter/triagecore/internal/metrics"
	"github.com/opscenter/triagecore/internal/publish"
	"github.com/opscenter/triagecore/internal/routing"
)

// ReadinessSink is notified as the loop's state changes, so an ambient
// liveness/readiness HTTP server can answer without reaching into the
// loop's internals. Both methods must be safe to call from the loop's
// own goroutine only — the loop is single-threaded by design.
type ReadinessSink interface {
	SetReady(ready bool)
	SetLeader(leader bool)
}

// noopReadinessSink is used when the caller doesn't need readiness wiring.
type noopReadinessSink struct{}

func (noopReadinessSink) SetReady(bool)  {}
func (noopReadinessSink) SetLeader(bool) {}

// Loop is the poll loop: INIT -> READY -> FETCH -> HASH -> DECIDE ->
// {SLEEP | SOLVE -> PUBLISH -> ADVANCE -> SLEEP | LOG_SKIP -> ADVANCE ->
// SLEEP}, with TRANSIENT_ERR and FATAL_ERR side paths.
type Loop struct {
	reader       ingest.Reader
	fpCache      *fingerprint.Cache
	routeBuilder *routing.Builder
	filter       *feasibility.Filter
	publisher    *publish.Publisher
	eventsPub    *events.Publisher
	metricsSink  *metrics.Sink
	alertsEngine *alerts.Engine
	elector      *leader.Elector
	readiness    ReadinessSink

	pollInterval time.Duration
	log          *zap.Logger
}

// Config bundles the dependencies a Loop needs. Elector and ReadinessSink
// may be nil/zero: a nil Elector means standalone (always-leader)
// operation, a nil ReadinessSink disables readiness reporting.
type Config struct {
	Reader        ingest.Reader
	FingerprintCache *fingerprint.Cache
	RouteBuilder  *routing.Builder
	Filter        *feasibility.Filter
	Publisher     *publish.Publisher
	EventsPub     *events.Publisher
	MetricsSink   *metrics.Sink
	AlertsEngine  *alerts.Engine
	Elector       *leader.Elector
	Readiness     ReadinessSink
	PollInterval  time.Duration
	Log           *zap.Logger
}

// New builds a Loop from cfg.
func New(cfg Config) *Loop {
	readiness := cfg.Readiness
	if readiness == nil {
		readiness = noopReadinessSink{}
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		reader:       cfg.Reader,
		fpCache:      cfg.FingerprintCache,
		routeBuilder: cfg.RouteBuilder,
		filter:       cfg.Filter,
		publisher:    cfg.Publisher,
		eventsPub:    cfg.EventsPub,
		metricsSink:  cfg.MetricsSink,
		alertsEngine: cfg.AlertsEngine,
		elector:      cfg.Elector,
		readiness:    readiness,
		pollInterval: cfg.PollInterval,
		log:          log,
	}
}

// Run executes the poll loop until ctx is cancelled. The loop itself checks
// for cancellation between ticks, at the sleep; within a tick, the context
// is passed to the reader, the route builder and the publisher, which
// abort on cancellation. The solver does not take a context and runs to
// completion.
func (l *Loop) Run(ctx context.Context) error {
	l.readiness.SetReady(false)

	if l.elector != nil {
		if err := l.elector.Campaign(ctx, "triagecore-worker"); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	l.readiness.SetLeader(l.elector.IsLeader())

	var lastFingerprint fingerprint.Hash
	if l.fpCache != nil {
		if h, err := l.fpCache.Load(ctx); err == nil {
			lastFingerprint = h
		}
	}

	l.readiness.SetReady(true)

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		if err := l.runTickIfLeader(ctx, &lastFingerprint); err != nil {
			return err // FATAL_ERR: TEARDOWN -> EXIT
		}

		select {
		case <-ctx.Done():
			if l.elector != nil {
				resignCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = l.elector.Resign(resignCtx)
			}
			return nil
		case <-l.electorDone():
			if err := l.rejoinElection(ctx); err != nil {
				return err
			}
		case <-ticker.C:
		}
	}
}

func (l *Loop) electorDone() <-chan struct{} {
	if l.elector == nil {
		return nil
	}
	return l.elector.Done()
}

func (l *Loop) rejoinElection(ctx context.Context) error {
	l.readiness.SetLeader(false)
	if err := l.elector.Rejoin(ctx); err != nil {
		return err
	}
	return l.elector.Campaign(ctx, "triagecore-worker")
}

// runTickIfLeader runs one FETCH->...->ADVANCE cycle if this instance
// currently holds leadership. A follower returns at once without reading
// inputs, since only the leader may solve/publish. The tick runs under a
// deadline of one poll interval.
func (l *Loop) runTickIfLeader(ctx context.Context, lastFingerprint *fingerprint.Hash) error {
	if !l.elector.IsLeader() {
		return nil
	}

	tickCtx, cancel := context.WithTimeout(ctx, l.pollInterval)
	defer cancel()

	result, err := l.tick(tickCtx, *lastFingerprint)
	if err != nil {
		if isFatal(err) {
			l.log.Error("fatal error, tearing down", zap.Error(err))
			return err
		}
		l.log.Warn("transient tick error, will retry next interval", zap.Error(err))
		return nil
	}

	if result.advanced {
		*lastFingerprint = result.fingerprint
	}
	return nil
}
