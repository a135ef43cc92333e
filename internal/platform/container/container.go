package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/mevzuat-rag/internal/core/chat"
	"github.com/jinford/mevzuat-rag/internal/core/ingestion"
	"github.com/jinford/mevzuat-rag/internal/core/regdoc"
	"github.com/jinford/mevzuat-rag/internal/core/search"
	"github.com/jinford/mevzuat-rag/internal/infra/openai"
	"github.com/jinford/mevzuat-rag/internal/infra/postgres"
	"github.com/jinford/mevzuat-rag/internal/platform/config"
	"github.com/jinford/mevzuat-rag/pkg/db"
)

// ServiceContainer はアプリケーションの依存関係を保持する。
type ServiceContainer struct {
	ChatService      *chat.ChatService
	RetrievalService *search.RetrievalService
	IngestService    *ingestion.IngestService
	RegDocRepo       regdoc.Repository

	logger   *slog.Logger
	database *db.DB
}

type containerOptions struct {
	logger     *slog.Logger
	embedder   search.Embedder
	batchEmbed ingestion.BatchEmbedder
	llmClient  chat.LLMClient
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はクエリ Embedding 用の Embedder を注入する
func WithContainerEmbedder(embedder search.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerBatchEmbedder はインジェスト用の BatchEmbedder を注入する
func WithContainerBatchEmbedder(embedder ingestion.BatchEmbedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.batchEmbed = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client chat.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	database, err := db.New(ctx, db.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	return NewContainerWithDB(cfg, database, opts...)
}

// NewContainerWithDB は既存の DB を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, database *db.DB, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Embedder (OpenAI)
	var openaiEmbedder *openai.Embedder
	newEmbedder := func() *openai.Embedder {
		if openaiEmbedder == nil {
			openaiEmbedder = openai.NewEmbedder(
				cfg.OpenAI.APIKey,
				openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
				openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
				openai.WithMaxConcurrentEmbeddings(int64(cfg.OpenAI.MaxConcurrentEmbeddings)),
			)
		}
		return openaiEmbedder
	}

	embedder := options.embedder
	if embedder == nil {
		embedder = newEmbedder()
	}
	batchEmbedder := options.batchEmbed
	if batchEmbedder == nil {
		batchEmbedder = newEmbedder()
	}

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		client, err := openai.NewClient(
			cfg.OpenAI.APIKey,
			openai.WithModel(cfg.OpenAI.LLMModel),
			openai.WithMaxConcurrentCompletions(int64(cfg.OpenAI.MaxConcurrentCompletions)),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = client
	}

	// Repository (PostgreSQL)
	searchRepo := postgres.NewSearchRepository(database.Pool)
	regDocRepo := postgres.NewRegDocRepository(database.Pool)

	// RetrievalService
	retrievalService := search.NewRetrievalService(
		searchRepo,
		embedder,
		search.Config{
			TopKVector:  cfg.Retrieval.TopKVector,
			TopKLexical: cfg.Retrieval.TopKLexical,
			RRFConstant: cfg.Retrieval.RRFConstant,
			TopKFused:   cfg.Retrieval.TopKFused,
		},
		search.WithRetrievalLogger(options.logger),
	)

	// ChatService
	grader := chat.NewGrader(chat.GraderConfig{
		TopM:             cfg.Grader.TopM,
		MinFusedScore:    cfg.Grader.MinFusedScore,
		MinEvidenceCount: cfg.Grader.MinEvidenceCount,
	})
	generator := chat.NewGenerator(llmClient, chat.WithGeneratorLogger(options.logger))
	chatService := chat.NewChatService(
		retrievalService,
		grader,
		generator,
		chat.WithChatLogger(options.logger),
		chat.WithRequestTimeout(cfg.Chat.RequestTimeout),
	)

	// IngestService
	counter, err := newTokenCounter()
	if err != nil {
		return nil, fmt.Errorf("TokenCounter 初期化に失敗しました: %w", err)
	}
	chunker := ingestion.NewChunker(counter, ingestion.ChunkerConfig{
		MaxTokens:     cfg.Ingest.MaxChunkTokens,
		OverlapTokens: cfg.Ingest.ChunkOverlapTokens,
	})
	ingestService := ingestion.NewIngestService(
		regDocRepo,
		batchEmbedder,
		chunker,
		ingestion.WithIngestLogger(options.logger),
		ingestion.WithIngestPipelineConfig(&ingestion.PipelineConfig{
			EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
		}),
	)

	return &ServiceContainer{
		ChatService:      chatService,
		RetrievalService: retrievalService,
		IngestService:    ingestService,
		RegDocRepo:       regDocRepo,
		logger:           options.logger,
		database:         database,
	}, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// tokenCounter は tiktoken を利用した TokenCounter 実装。
type tokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() (*tokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &tokenCounter{encoding: enc}, nil
}

func (t *tokenCounter) Count(text string) int {
	if t.encoding == nil {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

var _ ingestion.TokenCounter = (*tokenCounter)(nil)
