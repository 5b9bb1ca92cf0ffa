// Package metrics writes per-tick operational counters to InfluxDB as a
// time series: input sizes, feasible-triple count, solve duration, and
// the headline optimization numbers. Like the events package, this is
// best-effort observability, never on the correctness path.
package metrics

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"
)

// Sink writes tick metrics to InfluxDB. A nil Sink (zero value with no
// writeAPI) is safe to call — used when Influx is not configured.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
	log      *zap.Logger
}

// NewSink connects to InfluxDB. If url is empty, metrics recording is
// disabled and every call becomes a no-op.
func NewSink(url, token, org, bucket string, log *zap.Logger) *Sink {
	if url == "" {
		return &Sink{log: log}
	}
	client := influxdb2.NewClient(url, token)
	return &Sink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		bucket:   bucket,
		org:      org,
		log:      log,
	}
}

// TickMetrics is one tick's worth of operational counters.
type TickMetrics struct {
	HospitalCount       int
	PatientCount        int
	AmbulanceCount      int
	FeasibleTripleCount int
	SolveDuration       time.Duration
	MaxLivesSaved       int
	CapacityShortfall   int
	AmbulanceShortfall  int
}

// Record writes a tick's metrics as a single InfluxDB point. Failures are
// logged and discarded.
func (s *Sink) Record(ctx context.Context, tickID string, m TickMetrics) {
	if s == nil || s.writeAPI == nil {
		return
	}

	point := influxdb2.NewPoint(
		"optimization_tick",
		map[string]string{"tick_id": tickID},
		map[string]interface{}{
			"hospital_count":        m.HospitalCount,
			"patient_count":         m.PatientCount,
			"ambulance_count":       m.AmbulanceCount,
			"feasible_triple_count": m.FeasibleTripleCount,
			"solve_duration_ms":     m.SolveDuration.Milliseconds(),
			"max_lives_saved":       m.MaxLivesSaved,
			"capacity_shortfall":    m.CapacityShortfall,
			"ambulance_shortfall":   m.AmbulanceShortfall,
		},
		time.Now(),
	)

	if err := s.writeAPI.WritePoint(ctx, point); err != nil && s.log != nil {
		s.log.Warn("failed to record tick metrics", zap.Error(err))
	}
}

// Close releases the underlying Influx client, if any.
func (s *Sink) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Close()
}
