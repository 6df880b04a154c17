package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "model not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("load: %w", New(CodeConflict, "experiment active"))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("matches nested domain errors", func(t *testing.T) {
		inner := New(CodeUnavailable, "redis down")
		outer := Wrap(inner, CodeInternal, "persist failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeUnavailable))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause is reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "analytics store unreachable")
		require.Error(t, err)
		assert.True(t, Is(err, cause))

		de, ok := As(err)
		require.True(t, ok)
		assert.Equal(t, CodeUnavailable, de.Code)
		assert.Equal(t, "analytics store unreachable", de.Message)
	})
}
