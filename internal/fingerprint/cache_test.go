package fingerprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheInProcessFallback(t *testing.T) {
	t.Run("should report ErrNotFound before any value is stored", func(t *testing.T) {
		cache := NewCache("", "", 0, "test", nil)

		_, err := cache.Load(context.Background())

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("should round-trip a stored value without redis configured", func(t *testing.T) {
		cache := NewCache("", "", 0, "test", nil)
		ctx := context.Background()

		cache.Store(ctx, Hash("abc123"))
		got, err := cache.Load(ctx)

		assert.NoError(t, err)
		assert.Equal(t, Hash("abc123"), got)
	})

	t.Run("should overwrite a prior fallback value on repeated store", func(t *testing.T) {
		cache := NewCache("", "", 0, "test", nil)
		ctx := context.Background()

		cache.Store(ctx, Hash("first"))
		cache.Store(ctx, Hash("second"))
		got, err := cache.Load(ctx)

		assert.NoError(t, err)
		assert.Equal(t, Hash("second"), got)
	})
}
