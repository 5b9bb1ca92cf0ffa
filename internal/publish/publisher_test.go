package publish

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscenter/triagecore/internal/domain"
)

func TestPublishNoOpOnEmptyAssignments(t *testing.T) {
	t.Run("should not touch the database when there is nothing to publish", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		publisher := NewPublisher(db)
		err = publisher.Publish(context.Background(), nil)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPublishDeletesThenInserts(t *testing.T) {
	t.Run("should delete prior rows for the patient set then insert within one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		patientID := uuid.New()
		hospitalID := uuid.New()
		ambulanceID := uuid.New()
		travel := 12
		slack := 18

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM patient_assignments").
			WithArgs(patientID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO patient_assignments").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		publisher := NewPublisher(db)
		assignments := []domain.PatientAssignment{{
			PatientID:                patientID,
			HospitalID:               &hospitalID,
			AmbulanceID:              &ambulanceID,
			EstimatedTravelMinutes:   &travel,
			DeadlineSlackMinutes:     &slack,
			TreatmentDeadlineMinutes: 30,
			PatientRegisteredAt:      time.Now(),
			OptimizedAt:              time.Now(),
		}}

		err = publisher.Publish(context.Background(), assignments)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPublishRollsBackOnInsertFailure(t *testing.T) {
	t.Run("should roll back and return an error if an insert fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		patientID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM patient_assignments").
			WithArgs(patientID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO patient_assignments").
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		publisher := NewPublisher(db)
		assignments := []domain.PatientAssignment{{
			PatientID:                patientID,
			TreatmentDeadlineMinutes: 30,
			RequiresUrgentTransport:  true,
		}}

		err = publisher.Publish(context.Background(), assignments)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
