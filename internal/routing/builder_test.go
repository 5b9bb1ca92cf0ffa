package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscenter/triagecore/internal/domain"
)

type fakeOracle struct {
	compute func(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error)
}

func (f *fakeOracle) ComputeChunk(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error) {
	return f.compute(ctx, origins, destinations)
}

func TestBuilderBuildDropsNonOKElements(t *testing.T) {
	t.Run("should omit elements with a non-OK status from the resulting table", func(t *testing.T) {
		oracle := &fakeOracle{
			compute: func(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error) {
				return []ElementResult{
					{OriginIndex: 0, DestinationIndex: 0, Status: "OK", DurationSeconds: 90},
					{OriginIndex: 0, DestinationIndex: 1, Status: "ZERO_RESULTS"},
				}, nil
			},
		}
		builder := NewBuilder(oracle)

		table, err := builder.Build(context.Background(), coords(1), coords(2))
		require.NoError(t, err)

		_, ok0 := table.Get(0, 0)
		_, ok1 := table.Get(0, 1)
		assert.True(t, ok0)
		assert.False(t, ok1)
	})
}

func TestBuilderBuildConvertsSecondsToMinutes(t *testing.T) {
	t.Run("should ceil seconds to whole minutes with a minimum of one", func(t *testing.T) {
		oracle := &fakeOracle{
			compute: func(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error) {
				return []ElementResult{{OriginIndex: 0, DestinationIndex: 0, Status: "OK", DurationSeconds: 61}}, nil
			},
		}
		builder := NewBuilder(oracle)

		table, err := builder.Build(context.Background(), coords(1), coords(1))
		require.NoError(t, err)

		minutes, ok := table.Get(0, 0)
		require.True(t, ok)
		assert.Equal(t, 2, minutes)
	})
}

func TestBuilderBuildPropagatesChunkFailure(t *testing.T) {
	t.Run("should abort the whole build when a single chunk request fails", func(t *testing.T) {
		oracle := &fakeOracle{
			compute: func(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error) {
				return nil, errors.New("oracle unavailable")
			},
		}
		builder := NewBuilder(oracle)

		_, err := builder.Build(context.Background(), coords(1), coords(1))

		assert.Error(t, err)
	})
}

func TestBuilderBuildTablesOffsetsAcrossChunks(t *testing.T) {
	t.Run("should reassemble chunked results into the original coordinate index space", func(t *testing.T) {
		oracle := &fakeOracle{
			compute: func(ctx context.Context, origins, destinations []domain.Coordinate) ([]ElementResult, error) {
				var out []ElementResult
				for i := range origins {
					for j := range destinations {
						out = append(out, ElementResult{OriginIndex: i, DestinationIndex: j, Status: "OK", DurationSeconds: 60})
					}
				}
				return out, nil
			},
		}
		builder := NewBuilder(oracle)

		tables, err := builder.BuildTables(context.Background(), coords(150), coords(3), coords(2))
		require.NoError(t, err)

		for i := 0; i < 150; i++ {
			for j := 0; j < 3; j++ {
				_, ok := tables.AmbulanceToPatient.Get(i, j)
				assert.True(t, ok, "missing (%d,%d)", i, j)
			}
		}
	})
}
