// Package assembler converts solver output plus leftover patients into a
// complete OptimizationResult: every input patient gets exactly one
// output row, either a concrete match or an urgent-fallback placeholder.
package assembler

import (
	"time"

	"github.com/opscenter/triagecore/internal/domain"
)

// Assemble builds the complete OptimizationResult for a tick.
func Assemble(
	patients []domain.Patient,
	ambulances []domain.Ambulance,
	hospitals []domain.Hospital,
	chosen []domain.FeasibleTriple,
	now time.Time,
) domain.OptimizationResult {
	chosenByPatient := make(map[domain.PatientIndex]domain.FeasibleTriple, len(chosen))
	for _, t := range chosen {
		chosenByPatient[t.Patient] = t
	}

	assignments := make([]domain.PatientAssignment, 0, len(patients))
	var unassigned []domain.PatientID
	livesSaved := 0

	for idx, patient := range patients {
		pIdx := domain.PatientIndex(idx)
		triple, ok := chosenByPatient[pIdx]
		if !ok {
			assignments = append(assignments, fallbackAssignment(patient, now))
			unassigned = append(unassigned, patient.ID)
			continue
		}

		hospitalID := hospitals[triple.Hospital].ID
		ambulanceID := ambulances[triple.Ambulance].ID
		travel := triple.TravelMinutes
		slack := patient.TreatmentDeadlineMinutes - travel

		assignments = append(assignments, domain.PatientAssignment{
			PatientID:                patient.ID,
			HospitalID:               &hospitalID,
			AmbulanceID:              &ambulanceID,
			EstimatedTravelMinutes:   &travel,
			DeadlineSlackMinutes:     &slack,
			TreatmentDeadlineMinutes: patient.TreatmentDeadlineMinutes,
			PatientRegisteredAt:      patient.RegisteredAt,
			RequiresUrgentTransport:  false,
			OptimizedAt:              now,
		})
		livesSaved++
	}

	totalFreeBeds := 0
	for _, h := range hospitals {
		totalFreeBeds += h.FreeBeds()
	}
	capacityShortfall := len(patients) - totalFreeBeds
	if capacityShortfall < 0 {
		capacityShortfall = 0
	}
	ambulanceShortfall := len(patients) - len(ambulances)
	if ambulanceShortfall < 0 {
		ambulanceShortfall = 0
	}

	return domain.OptimizationResult{
		Assignments:          assignments,
		UnassignedPatientIDs: unassigned,
		MaxLivesSaved:        livesSaved,
		CapacityShortfall:    capacityShortfall,
		AmbulanceShortfall:   ambulanceShortfall,
	}
}

// fallbackAssignment builds the urgent-transport placeholder row for a
// patient with no chosen triple — either because none existed, or
// because the solver was never invoked (empty feasible set).
func fallbackAssignment(patient domain.Patient, now time.Time) domain.PatientAssignment {
	nominalSlack := patient.TreatmentDeadlineMinutes
	return domain.PatientAssignment{
		PatientID:                patient.ID,
		HospitalID:               nil,
		AmbulanceID:              nil,
		EstimatedTravelMinutes:   nil,
		DeadlineSlackMinutes:     &nominalSlack,
		TreatmentDeadlineMinutes: patient.TreatmentDeadlineMinutes,
		PatientRegisteredAt:      patient.RegisteredAt,
		RequiresUrgentTransport:  true,
		OptimizedAt:              now,
	}
}
