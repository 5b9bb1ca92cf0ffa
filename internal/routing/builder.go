// Package routing implements the Route Matrix Builder: it turns two
// coordinate sequences into a sparse minutes table by querying the
// external routing oracle, chunked to respect its per-request element cap.
package routing

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opscenter/triagecore/internal/domain"
	durationx "github.com/opscenter/triagecore/pkg/decimal"
)

// maxConcurrentChunks bounds how many oracle round-trips the builder keeps
// in flight at once. Chunks are independent I/O to an external service, so
// fanning them out does not violate the "single logical actor" rule —
// that rule bounds business-logic (solver) concurrency, not network
// fan-out (see spec §5).
const maxConcurrentChunks = 4

// Builder queries the routing oracle to produce sparse minutes tables.
type Builder struct {
	oracle Oracle
}

// NewBuilder wraps an Oracle client.
func NewBuilder(oracle Oracle) *Builder {
	return &Builder{oracle: oracle}
}

// Build returns the sparse (origin index, destination index) -> minutes
// table for the given coordinate lists. A request-level failure on any
// chunk aborts the whole build; an element-level error (non-OK status)
// simply drops that one pair.
func (b *Builder) Build(ctx context.Context, origins, destinations []domain.Coordinate) (domain.MinutesTable, error) {
	table := make(domain.MinutesTable)
	chunks := planChunks(origins, destinations)
	if len(chunks) == 0 {
		return table, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)

	for _, c := range chunks {
		c := c
		g.Go(func() error {
			elements, err := b.oracle.ComputeChunk(gctx, c.origins, c.destinations)
			if err != nil {
				return fmt.Errorf("routing: compute chunk (origins %d..%d, destinations %d..%d): %w",
					c.originBase, c.originBase+len(c.origins), c.destBase, c.destBase+len(c.destinations), err)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, e := range elements {
				if e.Status != "OK" && e.Status != "ok" {
					continue
				}
				minutes := durationx.CeilSecondsToMinutes(e.DurationSeconds)
				table.Set(c.originBase+e.OriginIndex, c.destBase+e.DestinationIndex, minutes)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return table, nil
}

// BuildTables builds both tables a tick needs: ambulance->patient and
// patient->hospital.
func (b *Builder) BuildTables(ctx context.Context, ambulances, patients, hospitals []domain.Coordinate) (domain.MinutesTables, error) {
	ambulanceToPatient, err := b.Build(ctx, ambulances, patients)
	if err != nil {
		return domain.MinutesTables{}, fmt.Errorf("routing: ambulance to patient matrix: %w", err)
	}
	patientToHospital, err := b.Build(ctx, patients, hospitals)
	if err != nil {
		return domain.MinutesTables{}, fmt.Errorf("routing: patient to hospital matrix: %w", err)
	}
	return domain.MinutesTables{
		AmbulanceToPatient: ambulanceToPatient,
		PatientToHospital:  patientToHospital,
	}, nil
}
