package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryState_HappyPathTransitions(t *testing.T) {
	st := NewQueryState("soru")
	assert.Equal(t, StageRouted, st.Stage)
	assert.False(t, st.Terminal())

	require.NoError(t, st.advance(StageRetrieved))
	require.NoError(t, st.advance(StageGraded))
	require.NoError(t, st.advance(StageGenerated))
	assert.True(t, st.Terminal())
}

func TestQueryState_InsufficientEvidenceIsTerminal(t *testing.T) {
	st := NewQueryState("soru")
	require.NoError(t, st.advance(StageRetrieved))
	require.NoError(t, st.advance(StageGraded))
	require.NoError(t, st.advance(StageInsufficientEvidence))
	assert.True(t, st.Terminal())

	// 終端からは前進できない
	assert.Error(t, st.advance(StageGenerated))
}

func TestQueryState_RejectsSkippedStages(t *testing.T) {
	st := NewQueryState("soru")
	assert.Error(t, st.advance(StageGraded))
	assert.Error(t, st.advance(StageGenerated))
	// 失敗した遷移は状態を変えない
	assert.Equal(t, StageRouted, st.Stage)
}

func TestQueryState_FailIsAbsorbing(t *testing.T) {
	st := NewQueryState("soru")
	require.NoError(t, st.advance(StageRetrieved))

	cause := errors.New("boom")
	st.fail(cause)
	assert.Equal(t, StageFailed, st.Stage)
	assert.True(t, st.Terminal())
	assert.ErrorIs(t, st.Err, cause)

	assert.Error(t, st.advance(StageGraded))
}
