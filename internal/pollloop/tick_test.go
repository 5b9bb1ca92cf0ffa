package pollloop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscenter/triagecore/internal/alerts"
	"github.com/opscenter/triagecore/internal/domain"
	"github.com/opscenter/triagecore/internal/events"
	"github.com/opscenter/triagecore/internal/feasibility"
	"github.com/opscenter/triagecore/internal/fingerprint"
	"github.com/opscenter/triagecore/internal/metrics"
	"github.com/opscenter/triagecore/internal/publish"
	"github.com/opscenter/triagecore/internal/routing"
)

// fakeOracle answers every chunk with a fixed duration for every
// origin/destination pair in it, so the builder always produces a
// dense minutes table regardless of chunk shape.
type fakeOracle struct {
	durationSeconds float64
}

func (f *fakeOracle) ComputeChunk(ctx context.Context, origins, destinations []domain.Coordinate) ([]routing.ElementResult, error) {
	var out []routing.ElementResult
	for i := range origins {
		for j := range destinations {
			out = append(out, routing.ElementResult{
				OriginIndex:      i,
				DestinationIndex: j,
				Status:           "OK",
				DurationSeconds:  f.durationSeconds,
			})
		}
	}
	return out, nil
}

type fakeReader struct {
	hospitals  []domain.Hospital
	patients   []domain.Patient
	ambulances []domain.Ambulance
	err        error
}

func (f *fakeReader) Hospitals(ctx context.Context) ([]domain.Hospital, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hospitals, nil
}

func (f *fakeReader) Patients(ctx context.Context) ([]domain.Patient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.patients, nil
}

func (f *fakeReader) Ambulances(ctx context.Context) ([]domain.Ambulance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ambulances, nil
}

// newLoopForTest builds a Loop whose RouteBuilder/Publisher are never
// actually invoked by the scenarios below: each one returns before the
// SOLVE/PUBLISH phases (unchanged fingerprint, fetch failure, or an
// empty input collection, which takes the LOG_SKIP path instead).
func newLoopForTest(reader *fakeReader) *Loop {
	return New(Config{
		Reader:       reader,
		RouteBuilder: routing.NewBuilder(nil),
		Filter:       feasibility.NewFilter(feasibility.DefaultSpeedFactor),
		EventsPub:    events.NewPublisher(nil),
		MetricsSink:  metrics.NewSink("", "", "", "", nil),
		AlertsEngine: alerts.NewEngine(nil),
		PollInterval: time.Second,
	})
}

func TestTickUnchangedFingerprintSkipsPublish(t *testing.T) {
	t.Run("should return advanced=false on a second identical tick", func(t *testing.T) {
		// No ambulances: the first tick takes the LOG_SKIP path and advances,
		// so neither tick reaches SOLVE/PUBLISH on this oracle-less loop.
		hospitalID, patientID := uuid.New(), uuid.New()
		reader := &fakeReader{
			hospitals: []domain.Hospital{{ID: hospitalID, BedCapacity: 2, UsedBeds: 2}},
			patients:  []domain.Patient{{ID: patientID, TreatmentDeadlineMinutes: 30}},
		}
		loop := newLoopForTest(reader)

		first, err := loop.tick(context.Background(), fingerprint.Hash(""))
		require.NoError(t, err)

		second, err := loop.tick(context.Background(), first.fingerprint)
		require.NoError(t, err)
		assert.False(t, second.advanced)
	})
}

func TestTickFetchFailureIsTransient(t *testing.T) {
	t.Run("should return a non-fatal error when the reader fails", func(t *testing.T) {
		reader := &fakeReader{err: errors.New("upstream unavailable")}
		loop := newLoopForTest(reader)

		_, err := loop.tick(context.Background(), fingerprint.Hash(""))

		require.Error(t, err)
		assert.False(t, isFatal(err))
	})
}

func TestTickEmptyCollectionSkipsSolveAndAdvances(t *testing.T) {
	t.Run("should advance the fingerprint without solving when an input collection is empty", func(t *testing.T) {
		reader := &fakeReader{
			hospitals: []domain.Hospital{{ID: uuid.New(), BedCapacity: 2}},
		}
		loop := newLoopForTest(reader)

		result, err := loop.tick(context.Background(), fingerprint.Hash(""))

		require.NoError(t, err)
		assert.True(t, result.advanced)
	})
}

func TestTickChangedInputSolvesPublishesAndAdvances(t *testing.T) {
	t.Run("should run the full FETCH->HASH->DECIDE->SOLVE->PUBLISH->ADVANCE path on a feasible, changed input", func(t *testing.T) {
		hospitalID, patientID, ambulanceID := uuid.New(), uuid.New(), uuid.New()
		reader := &fakeReader{
			hospitals: []domain.Hospital{{ID: hospitalID, BedCapacity: 2, UsedBeds: 0}},
			patients: []domain.Patient{{
				ID:                       patientID,
				TreatmentDeadlineMinutes: 30,
				RegisteredAt:             time.Now(),
			}},
			ambulances: []domain.Ambulance{{ID: ambulanceID}},
		}

		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM patient_assignments").
			WithArgs(patientID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO patient_assignments").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		loop := New(Config{
			Reader:       reader,
			RouteBuilder: routing.NewBuilder(&fakeOracle{durationSeconds: 120}),
			Filter:       feasibility.NewFilter(feasibility.DefaultSpeedFactor),
			Publisher:    publish.NewPublisher(db),
			EventsPub:    events.NewPublisher(nil),
			MetricsSink:  metrics.NewSink("", "", "", "", nil),
			AlertsEngine: alerts.NewEngine(nil),
			PollInterval: time.Second,
		})

		result, err := loop.tick(context.Background(), fingerprint.Hash(""))

		require.NoError(t, err)
		assert.True(t, result.advanced)
		assert.NotEmpty(t, result.fingerprint)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
