// Package publish implements the Result Publisher: within a single
// transaction, it deletes prior assignment rows for the affected patient
// set and inserts the new ones.
package publish

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/opscenter/triagecore/internal/domain"
)

// Publisher atomically replaces assignment rows in the shared store.
type Publisher struct {
	db *sql.DB
}

// NewPublisher wraps an already-opened database handle.
func NewPublisher(db *sql.DB) *Publisher {
	return &Publisher{db: db}
}

// Publish deletes every existing row for the patients present in
// assignments, then inserts assignments, all within one transaction. An
// empty assignments slice is a no-op — it must never wipe existing rows.
// On any failure the transaction rolls back and the caller must not
// advance its fingerprint.
func (p *Publisher) Publish(ctx context.Context, assignments []domain.PatientAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("publish: begin transaction: %w", err)
	}
	defer tx.Rollback()

	patientIDs := make([]interface{}, len(assignments))
	placeholders := make([]string, len(assignments))
	for i, a := range assignments {
		patientIDs[i] = a.PatientID
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	deleteQuery := fmt.Sprintf(
		`DELETE FROM patient_assignments WHERE patient_id IN (%s)`,
		strings.Join(placeholders, ","),
	)
	if _, err := tx.ExecContext(ctx, deleteQuery, patientIDs...); err != nil {
		return fmt.Errorf("publish: delete prior assignments: %w", err)
	}

	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO patient_assignments
				(patient_id, hospital_id, ambulance_id, estimated_travel_minutes,
				 deadline_slack_minutes, treatment_deadline_minutes,
				 patient_registered_at, requires_urgent_transport, optimized_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.PatientID, a.HospitalID, a.AmbulanceID, a.EstimatedTravelMinutes,
			a.DeadlineSlackMinutes, a.TreatmentDeadlineMinutes,
			a.PatientRegisteredAt.UTC(), a.RequiresUrgentTransport, a.OptimizedAt.UTC(),
		); err != nil {
			return fmt.Errorf("publish: insert assignment for patient %s: %w", a.PatientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("publish: commit transaction: %w", err)
	}
	return nil
}
