package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + LLM）
	OpenAI OpenAIConfig

	// 検索設定
	Retrieval RetrievalConfig

	// 評価（グレーディング）設定
	Grader GraderConfig

	// 質問応答設定
	Chat ChatConfig

	// インジェスト設定
	Ingest IngestConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// OpenAIConfig はOpenAI API設定（Embeddings + LLM）
type OpenAIConfig struct {
	APIKey                   string
	EmbeddingModel           string
	EmbeddingDimension       int
	LLMModel                 string
	MaxConcurrentEmbeddings  int
	MaxConcurrentCompletions int
}

// RetrievalConfig は二系統検索とランク融合の設定
type RetrievalConfig struct {
	TopKVector  int
	TopKLexical int
	RRFConstant int
	TopKFused   int
}

// GraderConfig は取得チャンク評価の設定
type GraderConfig struct {
	TopM             int
	MinFusedScore    float64
	MinEvidenceCount int
}

// ChatConfig は質問応答リクエストの設定
type ChatConfig struct {
	RequestTimeout time.Duration
}

// IngestConfig はチャンク化と Embedding 付与の設定
type IngestConfig struct {
	MaxChunkTokens     int
	ChunkOverlapTokens int
	EmbedBatchSize     int
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "mevzuat"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "mevzuat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 8),
		},
		OpenAI: OpenAIConfig{
			APIKey:                   getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:           getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension:       getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:                 getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
			MaxConcurrentEmbeddings:  getEnvAsInt("OPENAI_MAX_CONCURRENT_EMBEDDINGS", 8),
			MaxConcurrentCompletions: getEnvAsInt("OPENAI_MAX_CONCURRENT_COMPLETIONS", 4),
		},
		Retrieval: RetrievalConfig{
			TopKVector:  getEnvAsInt("RETRIEVAL_TOP_K_VECTOR", 20),
			TopKLexical: getEnvAsInt("RETRIEVAL_TOP_K_LEXICAL", 20),
			RRFConstant: getEnvAsInt("RETRIEVAL_RRF_K", 60),
			TopKFused:   getEnvAsInt("RETRIEVAL_TOP_K_FUSED", 12),
		},
		Grader: GraderConfig{
			TopM:             getEnvAsInt("GRADER_TOP_M", 12),
			MinFusedScore:    getEnvAsFloat("GRADER_MIN_FUSED_SCORE", 1.0/70.0),
			MinEvidenceCount: getEnvAsInt("GRADER_MIN_EVIDENCE", 1),
		},
		Chat: ChatConfig{
			RequestTimeout: getEnvAsDuration("CHAT_REQUEST_TIMEOUT", 60*time.Second),
		},
		Ingest: IngestConfig{
			MaxChunkTokens:     getEnvAsInt("INGEST_MAX_CHUNK_TOKENS", 512),
			ChunkOverlapTokens: getEnvAsInt("INGEST_CHUNK_OVERLAP_TOKENS", 64),
			EmbedBatchSize:     getEnvAsInt("INGEST_EMBED_BATCH_SIZE", 10),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
