package search

import "context"

// Repository は検索ポートのデータアクセスを統合するインターフェース。
// どちらのポートも現在のストレージ状態に対する読み取り専用クエリで、
// 返す候補は Rank 1 始まり・同点 chunk id 昇順で整列済みであること。
type Repository interface {
	// NearestChunks はクエリベクトルに近い順でチャンク候補を返す。
	// Embedding を持たないチャンクは対象外。
	NearestChunks(ctx context.Context, queryVector []float32, limit int) ([]Candidate, error)

	// LexicalChunks は字句一致スコアの高い順でチャンク候補を返す。
	// scope により本文 / 規程コード / 官報メタデータのいずれを対象とするかを切り替える。
	LexicalChunks(ctx context.Context, query string, limit int, scope LexicalScope) ([]Candidate, error)

	// HydrateChunks は融合済み候補に本文と規程コードを付与して返す。
	// 返却順は fused の順序を保存する。
	HydrateChunks(ctx context.Context, fused []FusedCandidate) ([]*RetrievedChunk, error)
}

// Embedder はクエリテキストの Embedding 生成インターフェース
type Embedder interface {
	// Embed は単一テキストの Embedding を生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}
