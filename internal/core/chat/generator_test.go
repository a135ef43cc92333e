package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
	"github.com/jinford/mevzuat-rag/internal/core/search"
)

type stubLLM struct {
	content string
	err     error
	calls   int
}

func (l *stubLLM) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	l.calls++
	if l.err != nil {
		return CompletionResponse{}, l.err
	}
	return CompletionResponse{Content: l.content, Model: "stub"}, nil
}

func contextChunks() []*search.RetrievedChunk {
	return []*search.RetrievedChunk{
		retrieved(1, "Graduation requires 240 ECTS credits.", 1.0/61.0),
		retrieved(2, "Students must complete an internship.", 1.0/62.0),
	}
}

func TestGenerate_ParsesAnswerAndCitations(t *testing.T) {
	llm := &stubLLM{content: `{"answer": "240 ECTS credits are required.", "citations": [{"reg_code": "5.1", "chunk_id": 1, "excerpt": "240 ECTS"}]}`}
	gen := NewGenerator(llm, WithGeneratorLogger(discardLogger()))

	result, err := gen.Generate(context.Background(), "graduation requirements", contextChunks())
	require.NoError(t, err)
	assert.Equal(t, "240 ECTS credits are required.", result.Answer)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, int64(1), result.Citations[0].ChunkID)
	assert.Equal(t, "240 ECTS", result.Citations[0].Excerpt)
}

// コンテキスト外の chunk_id を指す引用は捨てる
func TestGenerate_DropsUngroundedCitations(t *testing.T) {
	llm := &stubLLM{content: `{"answer": "ok", "citations": [{"reg_code": "9.9", "chunk_id": 999, "excerpt": "fabricated"}, {"reg_code": "5.1", "chunk_id": 2, "excerpt": ""}]}`}
	gen := NewGenerator(llm, WithGeneratorLogger(discardLogger()))

	result, err := gen.Generate(context.Background(), "soru", contextChunks())
	require.NoError(t, err)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, int64(2), result.Citations[0].ChunkID)
	// 空の抜粋はチャンク本文から補完される
	assert.NotEmpty(t, result.Citations[0].Excerpt)
}

// citations キーの欠落はエラーではなく空として扱い、コンテキストから導出する
func TestGenerate_MissingCitationsFieldFallsBackToContext(t *testing.T) {
	llm := &stubLLM{content: `{"answer": "answer without citations"}`}
	gen := NewGenerator(llm, WithGeneratorLogger(discardLogger()))

	result, err := gen.Generate(context.Background(), "soru", contextChunks())
	require.NoError(t, err)
	assert.Equal(t, "answer without citations", result.Answer)
	require.Len(t, result.Citations, 2)
	assert.Equal(t, int64(1), result.Citations[0].ChunkID)
}

func TestGenerate_NonJSONResponseFallsBackToPlainAnswer(t *testing.T) {
	llm := &stubLLM{content: "plain text answer"}
	gen := NewGenerator(llm, WithGeneratorLogger(discardLogger()))

	result, err := gen.Generate(context.Background(), "soru", contextChunks())
	require.NoError(t, err)
	assert.Equal(t, "plain text answer", result.Answer)
	assert.Len(t, result.Citations, 2)
}

func TestGenerate_WrapsUpstreamError(t *testing.T) {
	llm := &stubLLM{err: errors.New("api down")}
	gen := NewGenerator(llm, WithGeneratorLogger(discardLogger()))

	_, err := gen.Generate(context.Background(), "soru", contextChunks())
	require.Error(t, err)
	assert.True(t, fault.IsUpstream(err))
}

func TestHeuristicConfidence_Bounds(t *testing.T) {
	assert.Zero(t, heuristicConfidence(nil))

	low := heuristicConfidence(contextChunks()[:1])
	full := heuristicConfidence([]*search.RetrievedChunk{
		retrieved(1, "a", 0.03), retrieved(2, "b", 0.03), retrieved(3, "c", 0.03),
		retrieved(4, "d", 0.03), retrieved(5, "e", 0.03), retrieved(6, "f", 0.03),
	})

	assert.Greater(t, low, 0.0)
	assert.Greater(t, full, low)
	assert.LessOrEqual(t, full, 1.0)
}
