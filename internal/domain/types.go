// Package domain holds the data model shared by every stage of the
// optimization pipeline: inputs read from upstream, the intermediate
// run-scoped indices and tables, and the assignment rows that survive a
// tick.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// HospitalID, PatientID and AmbulanceID are opaque stable identifiers owned
// by the upstream store. They are never derived from run-scoped state.
type (
	HospitalID  = uuid.UUID
	PatientID   = uuid.UUID
	AmbulanceID = uuid.UUID
)

// PatientIndex, HospitalIndex and AmbulanceIndex are zero-based offsets into
// the coordinate/entity lists built for a single tick. They must not leak
// outside the core: nothing downstream of the Result Assembler should see
// one.
type (
	PatientIndex   int
	HospitalIndex  int
	AmbulanceIndex int
)

// Coordinate is a WGS84 lat/lon pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Hospital is an upstream snapshot of bed capacity and location.
type Hospital struct {
	ID            HospitalID
	Name          string
	BedCapacity   int
	UsedBeds      int
	Location      Coordinate
}

// FreeBeds returns the hospital's remaining capacity, floored at zero.
func (h Hospital) FreeBeds() int {
	if h.UsedBeds >= h.BedCapacity {
		return 0
	}
	return h.BedCapacity - h.UsedBeds
}

// Patient is an upstream snapshot of a patient awaiting transport.
type Patient struct {
	ID                      PatientID
	Location                Coordinate
	TreatmentDeadlineMinutes int
	RegisteredAt            time.Time
}

// Ambulance is an upstream snapshot of a vehicle's current position.
// AssignedPatientID is informational only; the solver never consults it
// (see spec Open Question on ambulance assignment).
type Ambulance struct {
	ID                AmbulanceID
	Location          Coordinate
	AssignedPatientID *PatientID
}

// RouteMatrixEntry is one resolved origin/destination pair returned by the
// routing oracle, already converted to whole minutes.
type RouteMatrixEntry struct {
	OriginIndex      int
	DestinationIndex int
	DurationMinutes  int
}

// MinutesTable is a sparse (origin index, destination index) -> minutes
// mapping. A missing key means the pair is infeasible (oracle returned an
// element-level error, or the pair was never requested).
type MinutesTable map[[2]int]int

// Get returns the minutes for (origin, destination) and whether the pair is
// present.
func (t MinutesTable) Get(origin, destination int) (int, bool) {
	v, ok := t[[2]int{origin, destination}]
	return v, ok
}

// Set records the minutes for (origin, destination).
func (t MinutesTable) Set(origin, destination, minutes int) {
	t[[2]int{origin, destination}] = minutes
}

// MinutesTables bundles the two tables a tick needs: ambulance to patient
// and patient to hospital.
type MinutesTables struct {
	AmbulanceToPatient MinutesTable
	PatientToHospital  MinutesTable
}

// FeasibleTriple is a (patient, ambulance, hospital) combination that
// respects capacity and deadline constraints, tagged with its travel time
// and urgency weight.
type FeasibleTriple struct {
	Patient        PatientIndex
	Ambulance      AmbulanceIndex
	Hospital       HospitalIndex
	TravelMinutes  int
	Weight         float64 // 1 / slack; higher means more time-critical
}

// PatientAssignment is the durable, published unit of work: either a
// concrete three-way match, or an urgent-fallback placeholder for a
// patient the solver could not place.
type PatientAssignment struct {
	PatientID               PatientID
	HospitalID               *HospitalID
	AmbulanceID              *AmbulanceID
	EstimatedTravelMinutes   *int
	DeadlineSlackMinutes     *int
	TreatmentDeadlineMinutes int
	PatientRegisteredAt      time.Time
	RequiresUrgentTransport  bool
	OptimizedAt              time.Time
}

// OptimizationResult is the complete output of a single tick's solve.
type OptimizationResult struct {
	Assignments         []PatientAssignment
	UnassignedPatientIDs []PatientID
	MaxLivesSaved        int
	CapacityShortfall    int
	AmbulanceShortfall   int
}
