// Package solver formulates and solves the 0/1 assignment program: choose
// a maximum-weight, conflict-free subset of feasible (patient, ambulance,
// hospital) triples.
//
// No off-the-shelf MILP backend (CBC/HiGHS/GLPK/gonum) is vendored in this
// module's dependency graph — see DESIGN.md. The solver below is an exact
// branch-and-bound search over per-patient candidate choices for inputs up
// to exactSearchPatientLimit patients, which returns a maximum-weight
// solution. Above that size it runs a deterministic greedy pass (no local
// search), which respects every constraint but does not guarantee a
// maximum-weight solution. Both are deterministic across runs of identical
// input.
package solver

import (
	"sort"

	"github.com/opscenter/triagecore/internal/domain"
)

// exactSearchPatientLimit bounds how many patients the exact
// branch-and-bound search will handle before falling back to the greedy
// heuristic. Chosen generously for an operations-center tick (hundreds of
// patients), not a target for tuning.
const exactSearchPatientLimit = 200

// Solution is the set of chosen triples the objective maximizes over.
type Solution struct {
	Chosen []domain.FeasibleTriple
}

// Solve formulates and solves the assignment program over the given
// feasible set. hospitalFreeBeds maps a hospital index to its remaining
// free-bed count (spec §4.5's per-hospital constraint). An empty feasible
// set is not solved — the caller is expected to check for that and emit
// an all-urgent result instead (spec §4.5).
func Solve(triples []domain.FeasibleTriple, hospitalFreeBeds map[domain.HospitalIndex]int) Solution {
	if len(triples) == 0 {
		return Solution{}
	}

	byPatient := groupByPatient(triples)
	patientOrder := sortedPatientIndices(byPatient)

	if len(patientOrder) <= exactSearchPatientLimit {
		return exactSolve(byPatient, patientOrder, hospitalFreeBeds)
	}
	return greedySolve(byPatient, patientOrder, hospitalFreeBeds)
}

// groupByPatient buckets triples by patient index, each bucket sorted by
// descending weight then ascending (ambulance, hospital) for determinism.
func groupByPatient(triples []domain.FeasibleTriple) map[domain.PatientIndex][]domain.FeasibleTriple {
	byPatient := make(map[domain.PatientIndex][]domain.FeasibleTriple)
	for _, t := range triples {
		byPatient[t.Patient] = append(byPatient[t.Patient], t)
	}
	for p := range byPatient {
		candidates := byPatient[p]
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Weight != candidates[j].Weight {
				return candidates[i].Weight > candidates[j].Weight
			}
			if candidates[i].Ambulance != candidates[j].Ambulance {
				return candidates[i].Ambulance < candidates[j].Ambulance
			}
			return candidates[i].Hospital < candidates[j].Hospital
		})
		byPatient[p] = candidates
	}
	return byPatient
}

func sortedPatientIndices(byPatient map[domain.PatientIndex][]domain.FeasibleTriple) []domain.PatientIndex {
	order := make([]domain.PatientIndex, 0, len(byPatient))
	for p := range byPatient {
		order = append(order, p)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return order
}

// searchState is the mutable state threaded through the branch-and-bound
// recursion.
type searchState struct {
	byPatient   map[domain.PatientIndex][]domain.FeasibleTriple
	order       []domain.PatientIndex
	freeBeds    map[domain.HospitalIndex]int
	usedAmbul   map[domain.AmbulanceIndex]bool
	usedBeds    map[domain.HospitalIndex]int
	suffixBound []float64 // suffixBound[i] = best-case sum of weights for order[i:], ignoring conflicts

	bestValue float64
	bestChoice []domain.FeasibleTriple
	current    []domain.FeasibleTriple
	currentValue float64
}

func exactSolve(byPatient map[domain.PatientIndex][]domain.FeasibleTriple, order []domain.PatientIndex, hospitalFreeBeds map[domain.HospitalIndex]int) Solution {
	freeBeds := make(map[domain.HospitalIndex]int, len(hospitalFreeBeds))
	for h, v := range hospitalFreeBeds {
		freeBeds[h] = v
	}

	suffixBound := make([]float64, len(order)+1)
	for i := len(order) - 1; i >= 0; i-- {
		best := 0.0
		if candidates := byPatient[order[i]]; len(candidates) > 0 {
			best = candidates[0].Weight
		}
		suffixBound[i] = suffixBound[i+1] + best
	}

	st := &searchState{
		byPatient:   byPatient,
		order:       order,
		freeBeds:    freeBeds,
		usedAmbul:   make(map[domain.AmbulanceIndex]bool),
		usedBeds:    make(map[domain.HospitalIndex]int),
		suffixBound: suffixBound,
	}
	st.recurse(0)

	return Solution{Chosen: st.bestChoice}
}

func (st *searchState) recurse(i int) {
	if st.currentValue+st.suffixBound[i] <= st.bestValue {
		return // pruned: even taking every remaining best case can't beat the incumbent
	}
	if i == len(st.order) {
		if st.currentValue > st.bestValue {
			st.bestValue = st.currentValue
			st.bestChoice = append([]domain.FeasibleTriple(nil), st.current...)
		}
		return
	}

	patient := st.order[i]

	// Branch: try each candidate triple for this patient (in descending
	// weight order, so good solutions are found early and prune harder),
	// then the "leave unassigned" branch.
	for _, candidate := range st.byPatient[patient] {
		if st.usedAmbul[candidate.Ambulance] {
			continue
		}
		if st.freeBeds[candidate.Hospital]-st.usedBeds[candidate.Hospital] <= 0 {
			continue
		}

		st.usedAmbul[candidate.Ambulance] = true
		st.usedBeds[candidate.Hospital]++
		st.current = append(st.current, candidate)
		st.currentValue += candidate.Weight

		st.recurse(i + 1)

		st.currentValue -= candidate.Weight
		st.current = st.current[:len(st.current)-1]
		st.usedBeds[candidate.Hospital]--
		st.usedAmbul[candidate.Ambulance] = false
	}

	st.recurse(i + 1)
}

// greedySolve is the deterministic fallback for inputs too large for the
// exact search: process patients in index order, taking each patient's
// highest-weight still-available triple.
func greedySolve(byPatient map[domain.PatientIndex][]domain.FeasibleTriple, order []domain.PatientIndex, hospitalFreeBeds map[domain.HospitalIndex]int) Solution {
	freeBeds := make(map[domain.HospitalIndex]int, len(hospitalFreeBeds))
	for h, v := range hospitalFreeBeds {
		freeBeds[h] = v
	}
	usedAmbul := make(map[domain.AmbulanceIndex]bool)
	usedBeds := make(map[domain.HospitalIndex]int)

	var chosen []domain.FeasibleTriple
	for _, patient := range order {
		for _, candidate := range byPatient[patient] {
			if usedAmbul[candidate.Ambulance] {
				continue
			}
			if freeBeds[candidate.Hospital]-usedBeds[candidate.Hospital] <= 0 {
				continue
			}
			usedAmbul[candidate.Ambulance] = true
			usedBeds[candidate.Hospital]++
			chosen = append(chosen, candidate)
			break
		}
	}
	return Solution{Chosen: chosen}
}
