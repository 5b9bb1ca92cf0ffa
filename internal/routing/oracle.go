package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opscenter/triagecore/internal/domain"
	"github.com/opscenter/triagecore/pkg/circuit"
)

// departureLead is added to "now" when building a request: the oracle
// rejects departures in the past, so the worker always asks a little into
// the future.
const departureLead = 30 * time.Second

// ElementResult is one origin/destination pair as streamed back by the
// oracle. A non-"OK" status means the pair is infeasible; the element is
// dropped rather than treated as a request-level failure.
type ElementResult struct {
	OriginIndex      int    `json:"origin_index"`
	DestinationIndex int    `json:"destination_index"`
	Status           string `json:"status"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Done             bool   `json:"done"`
}

type matrixRequest struct {
	Origins           []domain.Coordinate `json:"origins"`
	Destinations      []domain.Coordinate `json:"destinations"`
	TravelMode        string              `json:"travel_mode"`
	RoutingPreference string              `json:"routing_preference"`
	DepartureTime     time.Time           `json:"departure_time"`
}

// Oracle is the third-party routing service: it accepts origin/destination
// coordinate lists and streams back per-pair duration records.
type Oracle interface {
	ComputeChunk(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error)
}

// WebSocketOracle talks to the routing oracle over a persistent
// streaming connection: one request frame per chunk, followed by a
// stream of per-pair response frames terminated by a "done" frame.
type WebSocketOracle struct {
	url               string
	travelMode        string
	routingPreference string
	breaker           *circuit.Breaker
	dial              func(ctx context.Context, url string) (*websocket.Conn, error)
}

// NewWebSocketOracle builds an oracle client for the given endpoint.
func NewWebSocketOracle(url, travelMode, routingPreference string) *WebSocketOracle {
	return &WebSocketOracle{
		url:               url,
		travelMode:        travelMode,
		routingPreference: routingPreference,
		breaker: circuit.NewBreaker(circuit.Config{
			Name:        "routing-oracle",
			MaxFailures: 3,
			Timeout:     15 * time.Second,
			HalfOpenMax: 1,
		}),
		dial: defaultDial,
	}
}

func defaultDial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}

// ComputeChunk performs a single request/stream round-trip for one chunk
// of origins/destinations. An open breaker or a connection-level failure
// is a request-level error and aborts the caller's tick; a non-OK element
// status is folded into the returned slice and simply omitted downstream.
func (o *WebSocketOracle) ComputeChunk(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error) {
	var results []ElementResult

	err := o.breaker.Execute(ctx, func() error {
		conn, err := o.dial(ctx, o.url)
		if err != nil {
			return fmt.Errorf("dial routing oracle: %w", err)
		}
		defer conn.Close()

		req := matrixRequest{
			Origins:           origins,
			Destinations:      destinations,
			TravelMode:        o.travelMode,
			RoutingPreference: o.routingPreference,
			DepartureTime:     time.Now().Add(departureLead),
		}
		if err := conn.WriteJSON(req); err != nil {
			return fmt.Errorf("write routing request: %w", err)
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var frame ElementResult
			if err := conn.ReadJSON(&frame); err != nil {
				return fmt.Errorf("read routing frame: %w", err)
			}
			if frame.Done {
				return nil
			}
			results = append(results, frame)
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
