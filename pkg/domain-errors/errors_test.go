package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeValidation, "missing required field")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeRender))
	})

	t.Run("matches code deeper in the chain", func(t *testing.T) {
		inner := New(CodeConflict, "active record exists")
		outer := Wrap(inner, CodePersistence, "insert certificate")
		assert.True(t, HasCode(outer, CodePersistence))
		assert.True(t, HasCode(outer, CodeConflict))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("store: %w", New(CodeNotFound, "no record"))
		assert.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil error wraps to nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("unwrap reaches the cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodePersistence, "put blob")
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "put blob")
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeRender, CodeOf(New(CodeRender, "raster failed")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
