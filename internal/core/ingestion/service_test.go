package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/mevzuat-rag/internal/core/regdoc"
)

type stubIngestRepo struct {
	pending  []*regdoc.Document
	replaced map[int64][]*regdoc.Chunk
	hashes   map[int64]string
	fail     map[int64]error
}

func (r *stubIngestRepo) ListDocumentsNeedingChunks(ctx context.Context) ([]*regdoc.Document, error) {
	return r.pending, nil
}

func (r *stubIngestRepo) ReplaceChunks(ctx context.Context, docID int64, sourceSHA256 string, chunks []*regdoc.Chunk) error {
	if err := r.fail[docID]; err != nil {
		return err
	}
	if r.replaced == nil {
		r.replaced = make(map[int64][]*regdoc.Chunk)
		r.hashes = make(map[int64]string)
	}
	r.replaced[docID] = chunks
	r.hashes[docID] = sourceSHA256
	return nil
}

type stubBatchEmbedder struct {
	batchSizes []int
	err        error
}

func (e *stubBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batchSizes = append(e.batchSizes, len(texts))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

func pendingDoc(id int64, code, text, hash string) *regdoc.Document {
	return &regdoc.Document{
		ID:            id,
		Code:          code,
		Title:         "test",
		Language:      "tr",
		TextContent:   mo.Some(text),
		ContentSHA256: mo.Some(hash),
		ScrapedAt:     time.Now(),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_ChunksAndEmbedsPendingDocuments(t *testing.T) {
	repo := &stubIngestRepo{
		pending: []*regdoc.Document{
			pendingDoc(1, "5.1", "MADDE 5\n\nDers kaydı zorunludur.\n\nMADDE 6\n\nDevamsızlık sınırı yüzde otuzdur.", "hash-1"),
		},
	}
	embedder := &stubBatchEmbedder{}
	chunker := NewChunker(wordCounter{}, DefaultChunkerConfig())

	svc := NewIngestService(repo, embedder, chunker, WithIngestLogger(testLogger()))
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedDocs)
	assert.Equal(t, 2, result.TotalChunks)
	assert.Equal(t, "hash-1", repo.hashes[1])

	chunks := repo.replaced[1]
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Embedding)
	}
}

func TestRun_RespectsEmbedBatchSize(t *testing.T) {
	// 5段落 → 5チャンク（上限1トークン相当に小さく分割させる）
	text := "bir.\n\niki.\n\nüç.\n\ndört.\n\nbeş."
	repo := &stubIngestRepo{
		pending: []*regdoc.Document{pendingDoc(1, "5.1", text, "h")},
	}
	embedder := &stubBatchEmbedder{}
	chunker := NewChunker(wordCounter{}, ChunkerConfig{MaxTokens: 1, OverlapTokens: 0})

	svc := NewIngestService(repo, embedder, chunker,
		WithIngestLogger(testLogger()),
		WithIngestPipelineConfig(&PipelineConfig{EmbedBatchSize: 2}),
	)
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalChunks)
	assert.Equal(t, []int{2, 2, 1}, embedder.batchSizes)
}

// 文書単位の失敗はパイプライン全体を止めない
func TestRun_ContinuesOnPerDocumentFailure(t *testing.T) {
	repo := &stubIngestRepo{
		pending: []*regdoc.Document{
			pendingDoc(1, "5.1", "birinci belge içeriği.", "h1"),
			pendingDoc(2, "5.2", "ikinci belge içeriği.", "h2"),
		},
		fail: map[int64]error{1: errors.New("storage down")},
	}
	embedder := &stubBatchEmbedder{}
	chunker := NewChunker(wordCounter{}, DefaultChunkerConfig())

	svc := NewIngestService(repo, embedder, chunker, WithIngestLogger(testLogger()))
	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedDocs)
	assert.NotContains(t, repo.replaced, int64(1))
	assert.Contains(t, repo.replaced, int64(2))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &stubIngestRepo{
		pending: []*regdoc.Document{pendingDoc(1, "5.1", "içerik.", "h")},
	}
	svc := NewIngestService(repo, &stubBatchEmbedder{}, NewChunker(wordCounter{}, DefaultChunkerConfig()),
		WithIngestLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
