package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReaderHospitals(t *testing.T) {
	t.Run("should scan every hospital row into the domain type", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "name", "bed_capacity", "used_beds", "lat", "lon"}).
			AddRow(id, "General", 10, 4, 40.1, -73.9)
		mock.ExpectQuery("SELECT id, name, bed_capacity, used_beds, lat, lon FROM hospitals").WillReturnRows(rows)

		reader := NewStoreReader(db)
		hospitals, err := reader.Hospitals(context.Background())

		require.NoError(t, err)
		require.Len(t, hospitals, 1)
		assert.Equal(t, id, hospitals[0].ID)
		assert.Equal(t, 10, hospitals[0].BedCapacity)
		assert.Equal(t, 4, hospitals[0].UsedBeds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreReaderPatients(t *testing.T) {
	t.Run("should scan every patient row into the domain type", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "lat", "lon", "treatment_deadline_minutes", "registered_at"}).
			AddRow(id, 40.1, -73.9, 30, now)
		mock.ExpectQuery("SELECT id, lat, lon, treatment_deadline_minutes, registered_at FROM patients").WillReturnRows(rows)

		reader := NewStoreReader(db)
		patients, err := reader.Patients(context.Background())

		require.NoError(t, err)
		require.Len(t, patients, 1)
		assert.Equal(t, id, patients[0].ID)
		assert.Equal(t, 30, patients[0].TreatmentDeadlineMinutes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreReaderAmbulancesWithNullAssignment(t *testing.T) {
	t.Run("should leave AssignedPatientID nil for an unassigned ambulance", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "lat", "lon", "assigned_patient_id"}).
			AddRow(id, 40.1, -73.9, nil)
		mock.ExpectQuery("SELECT id, lat, lon, assigned_patient_id FROM ambulances").WillReturnRows(rows)

		reader := NewStoreReader(db)
		ambulances, err := reader.Ambulances(context.Background())

		require.NoError(t, err)
		require.Len(t, ambulances, 1)
		assert.Nil(t, ambulances[0].AssignedPatientID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreReaderAmbulancesWithAssignment(t *testing.T) {
	t.Run("should populate AssignedPatientID for an assigned ambulance", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		patientID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "lat", "lon", "assigned_patient_id"}).
			AddRow(id, 40.1, -73.9, patientID)
		mock.ExpectQuery("SELECT id, lat, lon, assigned_patient_id FROM ambulances").WillReturnRows(rows)

		reader := NewStoreReader(db)
		ambulances, err := reader.Ambulances(context.Background())

		require.NoError(t, err)
		require.Len(t, ambulances, 1)
		require.NotNil(t, ambulances[0].AssignedPatientID)
		assert.Equal(t, patientID, *ambulances[0].AssignedPatientID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
