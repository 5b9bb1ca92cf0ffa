// Package fingerprint computes a canonical, order-independent hash of the
// current input triple (hospitals, patients, ambulances) so the poll loop
// can detect whether anything changed since the last tick.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/opscenter/triagecore/internal/domain"
)

// Hash is a hex-encoded SHA-256 digest.
type Hash string

// Compute derives a reproducible fingerprint of the triple. It sorts each
// collection by stable id, serializes each element to a canonical
// (sorted-key, locale-independent) form, and hashes the concatenation. The
// result is independent of input ordering, collection implementation, and
// floating-point formatting locale.
func Compute(hospitals []domain.Hospital, patients []domain.Patient, ambulances []domain.Ambulance) Hash {
	h := sha256.New()

	writeSorted(h, hospitals, func(x domain.Hospital) string { return x.ID.String() }, serializeHospital)
	writeSorted(h, patients, func(x domain.Patient) string { return x.ID.String() }, serializePatient)
	writeSorted(h, ambulances, func(x domain.Ambulance) string { return x.ID.String() }, serializeAmbulance)

	return Hash(hex.EncodeToString(h.Sum(nil)))
}

func writeSorted[T any](h interface{ Write([]byte) (int, error) }, items []T, keyOf func(T) string, serialize func(T) string) {
	type keyed struct {
		key   string
		value string
	}
	keyedItems := make([]keyed, len(items))
	for i, it := range items {
		keyedItems[i] = keyed{key: keyOf(it), value: serialize(it)}
	}
	sort.Slice(keyedItems, func(i, j int) bool { return keyedItems[i].key < keyedItems[j].key })

	for _, ki := range keyedItems {
		h.Write([]byte(ki.value))
		h.Write([]byte{'\n'})
	}
	// A boundary marker between collections, so e.g. an empty hospitals
	// list followed by one patient cannot collide with one hospital
	// followed by an empty patients list.
	h.Write([]byte{0})
}

// formatFloat renders a float64 deterministically regardless of locale or
// Go runtime formatting differences: fixed precision, no grouping, no
// locale-sensitive decimal separator.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func serializeHospital(h domain.Hospital) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bed_capacity=%d;id=%s;lat=%s;lon=%s;name=%s;used_beds=%d",
		h.BedCapacity, h.ID.String(),
		formatFloat(h.Location.Lat), formatFloat(h.Location.Lon), h.Name, h.UsedBeds)
	return b.String()
}

func serializePatient(p domain.Patient) string {
	var b strings.Builder
	fmt.Fprintf(&b, "deadline=%d;id=%s;lat=%s;lon=%s;registered_at=%s",
		p.TreatmentDeadlineMinutes, p.ID.String(), formatFloat(p.Location.Lat), formatFloat(p.Location.Lon),
		p.RegisteredAt.UTC().Format("2006-01-02T15:04:05.000000000Z"))
	return b.String()
}

func serializeAmbulance(a domain.Ambulance) string {
	assigned := ""
	if a.AssignedPatientID != nil {
		assigned = a.AssignedPatientID.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "assigned_patient=%s;id=%s;lat=%s;lon=%s",
		assigned, a.ID.String(), formatFloat(a.Location.Lat), formatFloat(a.Location.Lon))
	return b.String()
}
