// Package ingest implements the Input Reader: loading the current
// snapshot of hospitals, patients and ambulances through one of two
// interchangeable backends.
package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opscenter/triagecore/internal/config"
	"github.com/opscenter/triagecore/internal/domain"
)

// Reader returns the current snapshot of the three input collections.
// Each call returns a finite ordered sequence; ordering is
// implementation-defined but stable within a single call. Transient
// failures (network/store) are returned as plain errors and abort the
// current tick only — the poll loop retries on its next scheduled
// iteration.
type Reader interface {
	Hospitals(ctx context.Context) ([]domain.Hospital, error)
	Patients(ctx context.Context) ([]domain.Patient, error)
	Ambulances(ctx context.Context) ([]domain.Ambulance, error)
}

// httpPageLimit is the page size requested per resource, per spec §6.2.
const httpPageLimit = 1000

// NewReader builds the configured backend: a store-backed reader against
// db, or an HTTP-backed reader against a remote read-only API.
func NewReader(cfg config.Ingestion, db *sql.DB) (Reader, error) {
	switch cfg.Type {
	case "db":
		return NewStoreReader(db), nil
	case "api":
		return NewHTTPReader(cfg.Host, cfg.APIKey, nil), nil
	default:
		return nil, fmt.Errorf("ingest: unknown source type %q", cfg.Type)
	}
}
