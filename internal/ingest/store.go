package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscenter/triagecore/internal/domain"
)

// StoreReader is the store-backed Input Reader: it issues bounded reads
// against the shared Postgres tables for hospitals, patients and
// ambulances.
type StoreReader struct {
	db *sql.DB
}

// NewStoreReader wraps an already-opened database handle. The caller owns
// the connection pool's lifecycle.
func NewStoreReader(db *sql.DB) *StoreReader {
	return &StoreReader{db: db}
}

func (r *StoreReader) Hospitals(ctx context.Context) ([]domain.Hospital, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, bed_capacity, used_beds, lat, lon FROM hospitals`)
	if err != nil {
		return nil, fmt.Errorf("ingest: query hospitals: %w", err)
	}
	defer rows.Close()

	var out []domain.Hospital
	for rows.Next() {
		var h domain.Hospital
		var id uuid.UUID
		if err := rows.Scan(&id, &h.Name, &h.BedCapacity, &h.UsedBeds, &h.Location.Lat, &h.Location.Lon); err != nil {
			return nil, fmt.Errorf("ingest: scan hospital: %w", err)
		}
		h.ID = id
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *StoreReader) Patients(ctx context.Context) ([]domain.Patient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lat, lon, treatment_deadline_minutes, registered_at FROM patients`)
	if err != nil {
		return nil, fmt.Errorf("ingest: query patients: %w", err)
	}
	defer rows.Close()

	var out []domain.Patient
	for rows.Next() {
		var p domain.Patient
		var id uuid.UUID
		if err := rows.Scan(&id, &p.Location.Lat, &p.Location.Lon, &p.TreatmentDeadlineMinutes, &p.RegisteredAt); err != nil {
			return nil, fmt.Errorf("ingest: scan patient: %w", err)
		}
		p.ID = id
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StoreReader) Ambulances(ctx context.Context) ([]domain.Ambulance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, lat, lon, assigned_patient_id FROM ambulances`)
	if err != nil {
		return nil, fmt.Errorf("ingest: query ambulances: %w", err)
	}
	defer rows.Close()

	var out []domain.Ambulance
	for rows.Next() {
		var a domain.Ambulance
		var id uuid.UUID
		var assigned uuid.NullUUID
		if err := rows.Scan(&id, &a.Location.Lat, &a.Location.Lon, &assigned); err != nil {
			return nil, fmt.Errorf("ingest: scan ambulance: %w", err)
		}
		a.ID = id
		if assigned.Valid {
			pid := assigned.UUID
			a.AssignedPatientID = &pid
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
