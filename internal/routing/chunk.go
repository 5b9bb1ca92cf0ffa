package routing

import "github.com/opscenter/triagecore/internal/domain"

// elementCap is the oracle's per-request element budget under
// traffic-aware mode (origins * destinations <= elementCap).
const elementCap = 100

// chunk describes one request's slice of the global origin/destination
// coordinate lists, along with the base offsets needed to translate the
// oracle's chunk-local indices back into the caller's coordinate space.
type chunk struct {
	origins      []domain.Coordinate
	destinations []domain.Coordinate
	originBase   int
	destBase     int
}

// planChunks partitions origins x destinations into requests that each
// respect elementCap, per spec §4.3: max_origins = min(|origins|, cap),
// max_destinations = cap / max_origins.
func planChunks(origins, destinations []domain.Coordinate) []chunk {
	if len(origins) == 0 || len(destinations) == 0 {
		return nil
	}

	maxOrigins := len(origins)
	if maxOrigins > elementCap {
		maxOrigins = elementCap
	}
	maxDestinations := elementCap / maxOrigins
	if maxDestinations < 1 {
		maxDestinations = 1
	}

	var chunks []chunk
	for oStart := 0; oStart < len(origins); oStart += maxOrigins {
		oEnd := oStart + maxOrigins
		if oEnd > len(origins) {
			oEnd = len(origins)
		}
		for dStart := 0; dStart < len(destinations); dStart += maxDestinations {
			dEnd := dStart + maxDestinations
			if dEnd > len(destinations) {
				dEnd = len(destinations)
			}
			chunks = append(chunks, chunk{
				origins:      origins[oStart:oEnd],
				destinations: destinations[dStart:dEnd],
				originBase:   oStart,
				destBase:     dStart,
			})
		}
	}
	return chunks
}
