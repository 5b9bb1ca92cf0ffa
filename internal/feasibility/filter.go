// Package feasibility enumerates (patient, ambulance, hospital) triples
// and keeps only those that respect capacity and deadline constraints.
package feasibility

import (
	"github.com/opscenter/triagecore/internal/domain"
	durationx "github.com/opscenter/triagecore/pkg/decimal"
)

// DefaultSpeedFactor models priority-vehicle speedup applied to raw
// travel time; must be >= 1.
const DefaultSpeedFactor = 1.3

// Filter builds the feasible-triple set for one tick.
type Filter struct {
	SpeedFactor float64
}

// NewFilter builds a Filter with the given speed factor, defaulting to
// DefaultSpeedFactor if speedFactor is not a valid (>=1) value.
func NewFilter(speedFactor float64) *Filter {
	if speedFactor < 1 {
		speedFactor = DefaultSpeedFactor
	}
	return &Filter{SpeedFactor: speedFactor}
}

// Build enumerates every (patient, ambulance, hospital) triple and keeps
// those with free hospital capacity, a known travel time for both legs,
// and strictly positive deadline slack.
func (f *Filter) Build(
	patients []domain.Patient,
	ambulances []domain.Ambulance,
	hospitals []domain.Hospital,
	tables domain.MinutesTables,
) []domain.FeasibleTriple {
	var triples []domain.FeasibleTriple

	for h, hospital := range hospitals {
		if hospital.UsedBeds >= hospital.BedCapacity {
			continue
		}

		for p, patient := range patients {
			for a := range ambulances {
				aToP, ok := tables.AmbulanceToPatient.Get(a, p)
				if !ok {
					continue
				}
				pToH, ok := tables.PatientToHospital.Get(p, h)
				if !ok {
					continue
				}

				travel := durationx.ApplySpeedFactor(aToP+pToH, f.SpeedFactor)
				slack := patient.TreatmentDeadlineMinutes - travel
				if slack <= 0 {
					continue
				}

				triples = append(triples, domain.FeasibleTriple{
					Patient:       domain.PatientIndex(p),
					Ambulance:     domain.AmbulanceIndex(a),
					Hospital:      domain.HospitalIndex(h),
					TravelMinutes: travel,
					Weight:        1.0 / float64(slack),
				})
			}
		}
	}

	return triples
}
