package pollloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opscenter/triagecore/internal/assembler"
	"github.com/opscenter/triagecore/internal/domain"
	"github.com/opscenter/triagecore/internal/events"
	"github.com/opscenter/triagecore/internal/fingerprint"
	"github.com/opscenter/triagecore/internal/metrics"
	"github.com/opscenter/triagecore/internal/solver"
)

// fatalErr wraps an error that should tear down the whole loop (FATAL_ERR
// in the state machine) rather than simply being logged and retried on
// the next scheduled tick.
type fatalErr struct{ err error }

func (e *fatalErr) Error() string { return e.err.Error() }
func (e *fatalErr) Unwrap() error { return e.err }

func isFatal(err error) bool {
	var fe *fatalErr
	return errors.As(err, &fe)
}

// tickResult reports what a tick decided, so the caller knows whether to
// advance the last-run fingerprint.
type tickResult struct {
	fingerprint fingerprint.Hash
	advanced    bool
}

// tick runs one FETCH -> HASH -> DECIDE -> {...} cycle. A returned error
// is always TRANSIENT_ERR semantics (the tick aborts, fingerprint is
// unchanged, the loop retries next interval) unless wrapped as a
// *fatalErr.
func (l *Loop) tick(ctx context.Context, last fingerprint.Hash) (tickResult, error) {
	tickID := uuid.New()
	start := time.Now()
	l.emit(ctx, events.TickStarted, events.TickEvent{TickID: tickID, Timestamp: start})

	hospitals, err := l.reader.Hospitals(ctx)
	if err != nil {
		l.emit(ctx, events.TickFailed, events.TickEvent{TickID: tickID, Timestamp: time.Now(), Reason: "fetch_hospitals"})
		return tickResult{}, fmt.Errorf("pollloop: fetch hospitals: %w", err)
	}
	patients, err := l.reader.Patients(ctx)
	if err != nil {
		l.emit(ctx, events.TickFailed, events.TickEvent{TickID: tickID, Timestamp: time.Now(), Reason: "fetch_patients"})
		return tickResult{}, fmt.Errorf("pollloop: fetch patients: %w", err)
	}
	ambulances, err := l.reader.Ambulances(ctx)
	if err != nil {
		l.emit(ctx, events.TickFailed, events.TickEvent{TickID: tickID, Timestamp: time.Now(), Reason: "fetch_ambulances"})
		return tickResult{}, fmt.Errorf("pollloop: fetch ambulances: %w", err)
	}

	fp := fingerprint.Compute(hospitals, patients, ambulances)
	fpPrefix := string(fp)
	if len(fpPrefix) > 12 {
		fpPrefix = fpPrefix[:12]
	}

	if fp == last {
		return tickResult{fingerprint: fp, advanced: false}, nil
	}

	if len(hospitals) == 0 || len(patients) == 0 || len(ambulances) == 0 {
		l.log.Info("skipping tick: an input collection is empty",
			zap.Int("hospitals", len(hospitals)), zap.Int("patients", len(patients)), zap.Int("ambulances", len(ambulances)))
		l.emit(ctx, events.TickSkipped, events.TickEvent{
			TickID: tickID, Timestamp: time.Now(), FingerprintPrefix: fpPrefix,
			HospitalCount: len(hospitals), PatientCount: len(patients), AmbulanceCount: len(ambulances),
			Reason: "empty_input",
		})
		l.advanceFingerprint(ctx, fp)
		return tickResult{fingerprint: fp, advanced: true}, nil
	}

	result, err := l.solve(ctx, tickID, start, hospitals, patients, ambulances, fpPrefix)
	if err != nil {
		l.emit(ctx, events.TickFailed, events.TickEvent{TickID: tickID, Timestamp: time.Now(), Reason: err.Error()})
		return tickResult{}, err
	}

	if err := l.publisher.Publish(ctx, result.Assignments); err != nil {
		l.emit(ctx, events.TickFailed, events.TickEvent{TickID: tickID, Timestamp: time.Now(), Reason: "publish_failed"})
		return tickResult{}, fmt.Errorf("pollloop: publish: %w", err)
	}

	l.advanceFingerprint(ctx, fp)

	if l.alertsEngine != nil {
		l.alertsEngine.Observe(ctx, tickID, result.CapacityShortfall, result.AmbulanceShortfall)
	}
	l.emit(ctx, events.TickPublished, events.TickEvent{
		TickID: tickID, Timestamp: time.Now(), FingerprintPrefix: fpPrefix,
		HospitalCount: len(hospitals), PatientCount: len(patients), AmbulanceCount: len(ambulances),
		MaxLivesSaved: result.MaxLivesSaved, CapacityShortfall: result.CapacityShortfall,
		AmbulanceShortfall: result.AmbulanceShortfall,
	})

	return tickResult{fingerprint: fp, advanced: true}, nil
}

// solve runs the BUILD -> FILTER -> SOLVE -> ASSEMBLE phases.
func (l *Loop) solve(
	ctx context.Context,
	tickID uuid.UUID,
	tickStarted time.Time,
	hospitals []domain.Hospital,
	patients []domain.Patient,
	ambulances []domain.Ambulance,
	fpPrefix string,
) (domain.OptimizationResult, error) {
	ambCoords := coordinatesOf(ambulances, func(a domain.Ambulance) domain.Coordinate { return a.Location })
	patCoords := coordinatesOf(patients, func(p domain.Patient) domain.Coordinate { return p.Location })
	hospCoords := coordinatesOf(hospitals, func(h domain.Hospital) domain.Coordinate { return h.Location })

	tables, err := l.routeBuilder.BuildTables(ctx, ambCoords, patCoords, hospCoords)
	if err != nil {
		return domain.OptimizationResult{}, fmt.Errorf("pollloop: build route matrices: %w", err)
	}

	triples := l.filter.Build(patients, ambulances, hospitals, tables)

	var chosen []domain.FeasibleTriple
	if len(triples) > 0 {
		freeBeds := make(map[domain.HospitalIndex]int, len(hospitals))
		for i, h := range hospitals {
			freeBeds[domain.HospitalIndex(i)] = h.FreeBeds()
		}
		chosen = solver.Solve(triples, freeBeds).Chosen
	}

	solveDuration := time.Since(tickStarted)
	result := assembler.Assemble(patients, ambulances, hospitals, chosen, time.Now())

	l.emit(ctx, events.TickSolved, events.TickEvent{
		TickID: tickID, Timestamp: time.Now(), FingerprintPrefix: fpPrefix,
		HospitalCount: len(hospitals), PatientCount: len(patients), AmbulanceCount: len(ambulances),
		FeasibleTripleCount: len(triples), MaxLivesSaved: result.MaxLivesSaved,
		CapacityShortfall: result.CapacityShortfall, AmbulanceShortfall: result.AmbulanceShortfall,
	})

	if l.metricsSink != nil {
		l.metricsSink.Record(ctx, tickID.String(), metrics.TickMetrics{
			HospitalCount: len(hospitals), PatientCount: len(patients), AmbulanceCount: len(ambulances),
			FeasibleTripleCount: len(triples), SolveDuration: solveDuration,
			MaxLivesSaved: result.MaxLivesSaved, CapacityShortfall: result.CapacityShortfall,
			AmbulanceShortfall: result.AmbulanceShortfall,
		})
	}

	return result, nil
}

func (l *Loop) advanceFingerprint(ctx context.Context, fp fingerprint.Hash) {
	if l.fpCache != nil {
		l.fpCache.Store(ctx, fp)
	}
}

func (l *Loop) emit(ctx context.Context, subject string, evt events.TickEvent) {
	if l.eventsPub == nil {
		return
	}
	if err := l.eventsPub.Emit(ctx, subject, evt); err != nil && l.log != nil {
		l.log.Debug("tick event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

func coordinatesOf[T any](items []T, coordOf func(T) domain.Coordinate) []domain.Coordinate {
	out := make([]domain.Coordinate, len(items))
	for i, item := range items {
		out[i] = coordOf(item)
	}
	return out
}
