package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "record not found")
		outer := Wrap(inner, CodeInternal, "failed to load record")

		assert.True(t, HasCode(outer, CodeInternal))
		assert.False(t, HasCode(outer, CodeNotFound))
	})

	t.Run("coded error survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeForbidden, "not an employer"))
		assert.True(t, HasCode(err, CodeForbidden))
		assert.Equal(t, CodeForbidden, CodeOf(err))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeProviderFailure, "failed to send code")

	require.ErrorIs(t, err, cause)
	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "failed to send code", de.Message)
	assert.Contains(t, err.Error(), "connection reset")
}
