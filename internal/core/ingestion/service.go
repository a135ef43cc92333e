package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/mevzuat-rag/internal/core/regdoc"
)

// DefaultEmbedBatchSize は 1 回の Embedding API 呼び出しで送るチャンク数
const DefaultEmbedBatchSize = 10

// PipelineConfig はインジェストパイプラインの設定
type PipelineConfig struct {
	EmbedBatchSize int
}

// DefaultPipelineConfig はデフォルトのパイプライン設定を返す
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		EmbedBatchSize: DefaultEmbedBatchSize,
	}
}

// IngestResult はインジェスト処理の結果を表す
type IngestResult struct {
	ProcessedDocs int
	TotalChunks   int
	Duration      time.Duration
}

// IngestService は規程文書のチャンク化と Embedding 付与のユースケースを提供する
type IngestService struct {
	repository Repository
	embedder   BatchEmbedder
	chunker    *Chunker
	cfg        *PipelineConfig
	logger     *slog.Logger
}

type ingestServiceOptions struct {
	cfg    *PipelineConfig
	logger *slog.Logger
}

// IngestServiceOption は IngestService のオプション設定
type IngestServiceOption func(*ingestServiceOptions)

// WithIngestLogger は IngestService にロガーを設定する
func WithIngestLogger(logger *slog.Logger) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.logger = logger
	}
}

// WithIngestPipelineConfig はパイプライン設定を上書きする
func WithIngestPipelineConfig(cfg *PipelineConfig) IngestServiceOption {
	return func(o *ingestServiceOptions) {
		o.cfg = cfg
	}
}

// NewIngestService は新しい IngestService を作成する
func NewIngestService(
	repo Repository,
	embedder BatchEmbedder,
	chunker *Chunker,
	opts ...IngestServiceOption,
) *IngestService {
	options := ingestServiceOptions{
		cfg:    DefaultPipelineConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.cfg == nil {
		options.cfg = DefaultPipelineConfig()
	}
	if options.cfg.EmbedBatchSize <= 0 {
		options.cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}

	return &IngestService{
		repository: repo,
		embedder:   embedder,
		chunker:    chunker,
		cfg:        options.cfg,
		logger:     options.logger,
	}
}

// Run は本文ハッシュとチャンクが一致していない文書をすべて処理する。
// 文書単位で失敗してもパイプライン全体は止めず、処理済み件数を返す。
func (s *IngestService) Run(ctx context.Context) (*IngestResult, error) {
	startTime := time.Now()

	docs, err := s.repository.ListDocumentsNeedingChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents needing chunks: %w", err)
	}

	s.logger.Info("ingest pipeline started", slog.Int("pending_docs", len(docs)))

	result := &IngestResult{}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunkCount, err := s.ingestDocument(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.logger.Error("failed to ingest document",
				slog.String("code", doc.Code),
				slog.String("error", err.Error()),
			)
			continue
		}

		result.ProcessedDocs++
		result.TotalChunks += chunkCount
	}

	result.Duration = time.Since(startTime)
	s.logger.Info("ingest pipeline completed",
		slog.Int("processed_docs", result.ProcessedDocs),
		slog.Int("total_chunks", result.TotalChunks),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *IngestService) ingestDocument(ctx context.Context, doc *regdoc.Document) (int, error) {
	content, ok := doc.TextContent.Get()
	if !ok || content == "" {
		// 本文がない文書はチャンク対象外
		return 0, nil
	}
	sourceHash, _ := doc.ContentSHA256.Get()

	chunks := s.chunker.Split(doc)
	s.logger.Debug("document chunked",
		slog.String("code", doc.Code),
		slog.Int("chunks", len(chunks)),
	)

	for start := 0; start < len(chunks); start += s.cfg.EmbedBatchSize {
		end := min(start+s.cfg.EmbedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(batch))
		}
		for i, vec := range vectors {
			batch[i].Embedding = vec
		}
	}

	if err := s.repository.ReplaceChunks(ctx, doc.ID, sourceHash, chunks); err != nil {
		return 0, fmt.Errorf("replace chunks for %s: %w", doc.Code, err)
	}
	return len(chunks), nil
}
