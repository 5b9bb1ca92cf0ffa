package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opscenter/triagecore/internal/domain"
)

func TestSolveEmptyFeasibleSet(t *testing.T) {
	t.Run("should return an empty solution when there are no feasible triples", func(t *testing.T) {
		sol := Solve(nil, map[domain.HospitalIndex]int{0: 5})

		assert.Empty(t, sol.Chosen)
	})
}

func TestSolveAtMostOncePerPatient(t *testing.T) {
	t.Run("should choose only one triple per patient even with multiple candidates", func(t *testing.T) {
		triples := []domain.FeasibleTriple{
			{Patient: 0, Ambulance: 0, Hospital: 0, Weight: 0.5},
			{Patient: 0, Ambulance: 1, Hospital: 1, Weight: 0.9},
		}
		freeBeds := map[domain.HospitalIndex]int{0: 1, 1: 1}

		sol := Solve(triples, freeBeds)

		assert.Len(t, sol.Chosen, 1)
		assert.Equal(t, domain.AmbulanceIndex(1), sol.Chosen[0].Ambulance, "should prefer the higher-weight candidate")
	})
}

func TestSolveAtMostOncePerAmbulance(t *testing.T) {
	t.Run("should not assign the same ambulance to two patients", func(t *testing.T) {
		triples := []domain.FeasibleTriple{
			{Patient: 0, Ambulance: 0, Hospital: 0, Weight: 1.0},
			{Patient: 1, Ambulance: 0, Hospital: 1, Weight: 1.0},
		}
		freeBeds := map[domain.HospitalIndex]int{0: 1, 1: 1}

		sol := Solve(triples, freeBeds)

		usedAmbulances := map[domain.AmbulanceIndex]bool{}
		for _, c := range sol.Chosen {
			assert.False(t, usedAmbulances[c.Ambulance], "ambulance %d used twice", c.Ambulance)
			usedAmbulances[c.Ambulance] = true
		}
		assert.Len(t, sol.Chosen, 1)
	})
}

func TestSolveRespectsHospitalCapacity(t *testing.T) {
	t.Run("should not exceed a hospital's free bed count", func(t *testing.T) {
		triples := []domain.FeasibleTriple{
			{Patient: 0, Ambulance: 0, Hospital: 0, Weight: 1.0},
			{Patient: 1, Ambulance: 1, Hospital: 0, Weight: 1.0},
			{Patient: 2, Ambulance: 2, Hospital: 0, Weight: 1.0},
		}
		freeBeds := map[domain.HospitalIndex]int{0: 2}

		sol := Solve(triples, freeBeds)

		assert.Len(t, sol.Chosen, 2)
	})
}

func TestSolveMaximizesTotalWeight(t *testing.T) {
	t.Run("should prefer the higher-weight conflicting assignment when capacity is scarce", func(t *testing.T) {
		// Patient 0 and patient 1 both want the only free bed and ambulance;
		// patient 1's candidate has a much higher weight (more urgent).
		triples := []domain.FeasibleTriple{
			{Patient: 0, Ambulance: 0, Hospital: 0, Weight: 0.2},
			{Patient: 1, Ambulance: 0, Hospital: 0, Weight: 0.8},
		}
		freeBeds := map[domain.HospitalIndex]int{0: 1}

		sol := Solve(triples, freeBeds)

		assert.Len(t, sol.Chosen, 1)
		assert.Equal(t, domain.PatientIndex(1), sol.Chosen[0].Patient)
	})
}

func TestSolveIsDeterministic(t *testing.T) {
	t.Run("should produce identical output across repeated runs on identical input", func(t *testing.T) {
		triples := []domain.FeasibleTriple{
			{Patient: 0, Ambulance: 0, Hospital: 0, Weight: 0.5},
			{Patient: 0, Ambulance: 1, Hospital: 1, Weight: 0.5},
			{Patient: 1, Ambulance: 1, Hospital: 1, Weight: 0.5},
		}
		freeBeds := map[domain.HospitalIndex]int{0: 1, 1: 1}

		first := Solve(triples, freeBeds)
		second := Solve(triples, freeBeds)

		assert.Equal(t, first.Chosen, second.Chosen)
	})
}

func TestSolveGreedyFallbackAboveExactLimit(t *testing.T) {
	t.Run("should still respect per-patient and per-ambulance constraints above the exact search limit", func(t *testing.T) {
		var triples []domain.FeasibleTriple
		freeBeds := map[domain.HospitalIndex]int{0: exactSearchPatientLimit + 5}
		for p := 0; p < exactSearchPatientLimit+5; p++ {
			triples = append(triples, domain.FeasibleTriple{
				Patient: domain.PatientIndex(p), Ambulance: domain.AmbulanceIndex(p), Hospital: 0, Weight: 1.0,
			})
		}

		sol := Solve(triples, freeBeds)

		assert.Len(t, sol.Chosen, exactSearchPatientLimit+5)
		seenPatients := map[domain.PatientIndex]bool{}
		for _, c := range sol.Chosen {
			assert.False(t, seenPatients[c.Patient])
			seenPatients[c.Patient] = true
		}
	})
}
