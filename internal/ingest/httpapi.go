package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/opscenter/triagecore/internal/domain"
	"github.com/opscenter/triagecore/pkg/circuit"
)

// envelope is the pagination wrapper the read-only input API returns.
type envelope struct {
	Items  json.RawMessage `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// HTTPReader is the HTTP-backed Input Reader: it pages GET {host}/{resource}
// with a bearer credential minted per call and unwraps the items envelope.
type HTTPReader struct {
	host    string
	client  *http.Client
	signer  *tokenSigner
	breaker *circuit.Breaker
}

// NewHTTPReader builds an HTTPReader. host should not have a trailing
// slash, e.g. "https://ops-api.internal".
func NewHTTPReader(host, apiKey string, client *http.Client) *HTTPReader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPReader{
		host:   host,
		client: client,
		signer: newTokenSigner(apiKey),
		breaker: circuit.NewBreaker(circuit.Config{
			Name:        "ingest-http",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
			HalfOpenMax: 1,
		}),
	}
}

func (r *HTTPReader) Hospitals(ctx context.Context) ([]domain.Hospital, error) {
	var raw []struct {
		ID          uuid.UUID `json:"id"`
		Name        string    `json:"name"`
		BedCapacity int       `json:"bed_capacity"`
		UsedBeds    int       `json:"used_beds"`
		Lat         float64   `json:"lat"`
		Lon         float64   `json:"lon"`
	}
	if err := r.fetchAll(ctx, "hospitals", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Hospital, len(raw))
	for i, h := range raw {
		out[i] = domain.Hospital{
			ID:          h.ID,
			Name:        h.Name,
			BedCapacity: h.BedCapacity,
			UsedBeds:    h.UsedBeds,
			Location:    domain.Coordinate{Lat: h.Lat, Lon: h.Lon},
		}
	}
	return out, nil
}

func (r *HTTPReader) Patients(ctx context.Context) ([]domain.Patient, error) {
	var raw []struct {
		ID                       uuid.UUID `json:"id"`
		Lat                      float64   `json:"lat"`
		Lon                      float64   `json:"lon"`
		TreatmentDeadlineMinutes int       `json:"treatment_deadline_minutes"`
		RegisteredAt             time.Time `json:"registered_at"`
	}
	if err := r.fetchAll(ctx, "patients", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Patient, len(raw))
	for i, p := range raw {
		out[i] = domain.Patient{
			ID:                       p.ID,
			Location:                 domain.Coordinate{Lat: p.Lat, Lon: p.Lon},
			TreatmentDeadlineMinutes: p.TreatmentDeadlineMinutes,
			RegisteredAt:             p.RegisteredAt,
		}
	}
	return out, nil
}

func (r *HTTPReader) Ambulances(ctx context.Context) ([]domain.Ambulance, error) {
	var raw []struct {
		ID                uuid.UUID  `json:"id"`
		Lat               float64    `json:"lat"`
		Lon               float64    `json:"lon"`
		AssignedPatientID *uuid.UUID `json:"assigned_patient_id"`
	}
	if err := r.fetchAll(ctx, "ambulances", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Ambulance, len(raw))
	for i, a := range raw {
		out[i] = domain.Ambulance{
			ID:                a.ID,
			Location:          domain.Coordinate{Lat: a.Lat, Lon: a.Lon},
			AssignedPatientID: a.AssignedPatientID,
		}
	}
	return out, nil
}

// fetchAll pages through a resource, consumer-driven, requesting up to
// httpPageLimit per call, until the envelope's total is exhausted.
func (r *HTTPReader) fetchAll(ctx context.Context, resource string, into interface{}) error {
	offset := 0
	var combined []json.RawMessage

	for {
		var page envelope
		err := r.breaker.Execute(ctx, func() error {
			return r.fetchPage(ctx, resource, offset, &page)
		})
		if err != nil {
			return fmt.Errorf("ingest: fetch %s at offset %d: %w", resource, offset, err)
		}

		var items []json.RawMessage
		if err := json.Unmarshal(page.Items, &items); err != nil {
			return fmt.Errorf("ingest: decode %s items: %w", resource, err)
		}
		combined = append(combined, items...)

		offset += len(items)
		if len(items) < httpPageLimit || offset >= page.Total {
			break
		}
	}

	merged, err := json.Marshal(combined)
	if err != nil {
		return fmt.Errorf("ingest: remarshal %s items: %w", resource, err)
	}
	return json.Unmarshal(merged, into)
}

func (r *HTTPReader) fetchPage(ctx context.Context, resource string, offset int, into *envelope) error {
	token, err := r.signer.mint()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s?limit=%d&offset=%d", r.host, resource, httpPageLimit, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream %s returned %d", resource, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, resource)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return nil
}
