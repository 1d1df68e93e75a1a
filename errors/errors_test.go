package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWrapf(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "write page %d", 7)

	assert.Equal(t, "write page 7: original", wrapped.Error())
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("run already exists"), "pass --resume")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "pass --resume", hints[0])
}

func TestSentinels(t *testing.T) {
	t.Run("page exists survives wrapping", func(t *testing.T) {
		err := Wrapf(ErrPageExists, "page %s", "w00-003")
		assert.True(t, Is(err, ErrPageExists))
		assert.False(t, Is(err, ErrCheckpointMismatch))
	})

	t.Run("not found helpers", func(t *testing.T) {
		err := NewNotFoundError("run %s", "abc")
		assert.True(t, IsNotFoundError(err))
		assert.Contains(t, err.Error(), "run abc")
		assert.False(t, IsNotFoundError(nil))
	})

	t.Run("invalid request helpers", func(t *testing.T) {
		err := NewInvalidRequestError("page_size must be > 0, got %d", 0)
		assert.True(t, IsInvalidRequestError(err))
		assert.False(t, IsInvalidRequestError(New("other")))
	})
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
	assert.NotNil(t, GetReportableStackTrace(err))
}
