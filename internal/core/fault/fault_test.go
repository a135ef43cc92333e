package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidation("query is required")
	assert.True(t, IsValidation(err))
	assert.False(t, IsUpstream(err))
	assert.False(t, IsStorage(err))
}

func TestUpstreamErrorWrapsCause(t *testing.T) {
	cause := errors.New("429 rate limited")
	err := NewUpstream("embedding", cause)

	assert.True(t, IsUpstream(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "embedding")
}

func TestStorageErrorSurvivesWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("replace chunks for 5.1: %w", NewStorage("replace chunks", cause))

	require.True(t, IsStorage(err))
	assert.ErrorIs(t, err, cause)
}

func TestIsHelpersRejectNil(t *testing.T) {
	assert.False(t, IsValidation(nil))
	assert.False(t, IsUpstream(nil))
	assert.False(t, IsStorage(nil))
}
