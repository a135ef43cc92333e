package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
	"github.com/jinford/mevzuat-rag/internal/core/ingestion"
	"github.com/jinford/mevzuat-rag/internal/core/search"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// DefaultMaxConcurrentEmbeddings は同時に実行するEmbeddingリクエストの上限
	DefaultMaxConcurrentEmbeddings = 8
	// maxBatchSize はOpenAI Embedding APIの1リクエストあたりの上限件数
	maxBatchSize = 100
)

// Embedder は OpenAI API を使用してテキストをベクトルに変換する
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	sem       *semaphore.Weighted
}

type embedderOptions struct {
	model         string
	dimension     int
	maxConcurrent int64
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithMaxConcurrentEmbeddings は同時Embeddingリクエスト数の上限を上書きする
func WithMaxConcurrentEmbeddings(n int64) EmbedderOption {
	return func(o *embedderOptions) {
		o.maxConcurrent = n
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) *Embedder {
	options := embedderOptions{
		model:         DefaultEmbeddingModel,
		dimension:     DefaultEmbeddingDimension,
		maxConcurrent: DefaultMaxConcurrentEmbeddings,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.maxConcurrent <= 0 {
		options.maxConcurrent = DefaultMaxConcurrentEmbeddings
	}

	return &Embedder{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
		),
		model:     options.model,
		dimension: options.dimension,
		sem:       semaphore.NewWeighted(options.maxConcurrent),
	}
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fault.NewUpstream("embedding", errors.New("no embeddings generated"))
	}

	return embeddings[0], nil
}

// BatchEmbed はバッチで Embedding を生成する（最大100件）
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fault.NewValidation("no texts provided")
	}

	if len(texts) > maxBatchSize {
		return nil, fault.NewValidation("batch size %d exceeds maximum of %d", len(texts), maxBatchSize)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}

	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}

	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fault.NewUpstream("embedding", err)
	}

	embeddings := make([][]float32, 0, len(resp.Data))
	for _, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		embeddings = append(embeddings, vector)
	}

	return embeddings, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// インターフェース実装の確認
var (
	_ search.Embedder         = (*Embedder)(nil)
	_ ingestion.BatchEmbedder = (*Embedder)(nil)
)
