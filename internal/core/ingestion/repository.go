package ingestion

import (
	"context"

	"github.com/jinford/mevzuat-rag/internal/core/regdoc"
)

// Repository はインジェストのデータアクセスを統合するインターフェース。
// 文書自体の作成・更新はスクレイパの責務で、ここはチャンクの入れ替えのみ行う。
type Repository interface {
	// ListDocumentsNeedingChunks は本文があり、かつチャンクが本文ハッシュと
	// 一致していない（未チャンクまたは本文更新済み）文書を返す
	ListDocumentsNeedingChunks(ctx context.Context) ([]*regdoc.Document, error)

	// ReplaceChunks は文書配下のチャンクを原子的に入れ替え、
	// チャンク生成元の本文ハッシュを記録する
	ReplaceChunks(ctx context.Context, docID int64, sourceSHA256 string, chunks []*regdoc.Chunk) error
}

// BatchEmbedder はチャンク本文のバッチ Embedding 生成インターフェース
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}
