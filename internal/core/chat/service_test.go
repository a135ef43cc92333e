package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
	"github.com/jinford/mevzuat-rag/internal/core/search"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSearchRepo struct {
	lexical map[search.LexicalScope][]search.Candidate
	vector  []search.Candidate
	content map[int64]string
}

func (r *stubSearchRepo) NearestChunks(ctx context.Context, queryVector []float32, limit int) ([]search.Candidate, error) {
	return r.vector, nil
}

func (r *stubSearchRepo) LexicalChunks(ctx context.Context, query string, limit int, scope search.LexicalScope) ([]search.Candidate, error) {
	return r.lexical[scope], nil
}

func (r *stubSearchRepo) HydrateChunks(ctx context.Context, fused []search.FusedCandidate) ([]*search.RetrievedChunk, error) {
	chunks := make([]*search.RetrievedChunk, 0, len(fused))
	for _, f := range fused {
		content := r.content[f.ChunkID]
		chunks = append(chunks, &search.RetrievedChunk{
			ChunkID:    f.ChunkID,
			RegCode:    "5.1",
			Content:    content,
			FusedScore: f.Score,
			Sources:    f.Sources,
		})
	}
	return chunks, nil
}

type stubQueryEmbedder struct{}

func (stubQueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func newTestService(repo *stubSearchRepo, llm LLMClient, opts ...ChatServiceOption) *ChatService {
	retrieval := search.NewRetrievalService(repo, stubQueryEmbedder{}, search.DefaultConfig(),
		search.WithRetrievalLogger(discardLogger()))
	grader := NewGrader(DefaultGraderConfig())
	generator := NewGenerator(llm, WithGeneratorLogger(discardLogger()))
	opts = append([]ChatServiceOption{WithChatLogger(discardLogger())}, opts...)
	return NewChatService(retrieval, grader, generator, opts...)
}

func vectorCandidates(ids ...int64) []search.Candidate {
	list := make([]search.Candidate, 0, len(ids))
	for i, id := range ids {
		list = append(list, search.Candidate{ChunkID: id, Rank: i + 1, Source: search.SourceVector})
	}
	return list
}

func TestAnswer_FullPipeline(t *testing.T) {
	repo := &stubSearchRepo{
		vector: vectorCandidates(1, 2),
		lexical: map[search.LexicalScope][]search.Candidate{
			search.ScopeContent: {{ChunkID: 1, Rank: 1, Source: search.SourceLexical}},
		},
		content: map[int64]string{
			1: "Graduation requires 240 ECTS credits.",
			2: "Internship is mandatory for graduation.",
		},
	}
	llm := &stubLLM{content: `{"answer": "240 ECTS.", "citations": [{"reg_code": "5.1", "chunk_id": 1, "excerpt": "240 ECTS"}]}`}

	svc := newTestService(repo, llm)
	result, err := svc.Answer(context.Background(), "What are the graduation requirements?")
	require.NoError(t, err)

	assert.True(t, result.HasSufficientEvidence)
	assert.Equal(t, "240 ECTS.", result.Answer)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, int64(1), result.Citations[0].ChunkID)
	assert.Greater(t, result.Confidence, 0.0)
	assert.Equal(t, 1, llm.calls)
}

// 根拠不足時は Generator を一度も呼ばずに定型回答で終了する
func TestAnswer_InsufficientEvidenceSkipsGenerator(t *testing.T) {
	repo := &stubSearchRepo{content: map[int64]string{}}
	llm := &stubLLM{content: `{"answer": "should never be used"}`}

	svc := newTestService(repo, llm)
	result, err := svc.Answer(context.Background(), "What are the graduation requirements?")
	require.NoError(t, err)

	assert.False(t, result.HasSufficientEvidence)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Citations)
	assert.NotEmpty(t, result.Answer)
	assert.Zero(t, llm.calls)
}

func TestAnswer_EmptyQueryIsValidationError(t *testing.T) {
	svc := newTestService(&stubSearchRepo{}, &stubLLM{})

	_, err := svc.Answer(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))
}

func TestAnswer_GenerationFailurePropagates(t *testing.T) {
	repo := &stubSearchRepo{
		vector: vectorCandidates(1),
		content: map[int64]string{
			1: "Graduation requires 240 ECTS credits.",
		},
	}
	llm := &stubLLM{err: errors.New("completion service down")}

	svc := newTestService(repo, llm)
	_, err := svc.Answer(context.Background(), "What are the graduation requirements?")
	require.Error(t, err)
	assert.True(t, fault.IsUpstream(err))
}

type blockingLLM struct{}

func (blockingLLM) GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	<-ctx.Done()
	return CompletionResponse{}, ctx.Err()
}

// リクエストタイムアウトは LLM 呼び出しまで伝播する
func TestAnswer_HonorsRequestTimeout(t *testing.T) {
	repo := &stubSearchRepo{
		vector: vectorCandidates(1),
		content: map[int64]string{
			1: "Graduation requires 240 ECTS credits.",
		},
	}

	svc := newTestService(repo, blockingLLM{}, WithRequestTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.Answer(context.Background(), "What are the graduation requirements?")
	require.Error(t, err)
	assert.True(t, fault.IsUpstream(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}
