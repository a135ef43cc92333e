package search

import "github.com/samber/mo"

// Source は候補を生成した検索経路を表す
type Source string

const (
	// SourceVector はベクトル近傍検索由来の候補
	SourceVector Source = "vector"
	// SourceLexical は字句検索由来の候補
	SourceLexical Source = "lexical"
)

// LexicalScope は字句検索の対象フィールドを表す
type LexicalScope string

const (
	// ScopeContent はチャンク本文を対象とする
	ScopeContent LexicalScope = "content"
	// ScopeCode は規程コードを対象とする（直接コード検索）
	ScopeCode LexicalScope = "code"
	// ScopeMetadata は官報メタデータ（R.G. / A.E. / EK / 日付）を対象とする
	ScopeMetadata LexicalScope = "metadata"
)

// Candidate は検索ポート1回の呼び出しが返す候補を表す。
// Rank は 1 始まりで、同点は chunk id 昇順で確定済み。
type Candidate struct {
	ChunkID  int64   `json:"chunkID"`
	Rank     int     `json:"rank"`
	RawScore float64 `json:"rawScore"` // ベクトル: 類似度（1−コサイン距離）、字句: 関連度。いずれも大きいほど良い
	Source   Source  `json:"source"`
}

// FusedCandidate はランク融合後の候補を表す
type FusedCandidate struct {
	ChunkID int64    `json:"chunkID"`
	Score   float64  `json:"score"`
	Sources []Source `json:"sources"`
}

// RetrievedChunk は融合上位の候補に本文を付与した検索結果を表す
type RetrievedChunk struct {
	ChunkID    int64             `json:"chunkID"`
	DocID      int64             `json:"docID"`
	RegCode    string            `json:"regCode"`
	URL        mo.Option[string] `json:"url"`
	Heading    mo.Option[string] `json:"heading"`
	Content    string            `json:"content"`
	FusedScore float64           `json:"fusedScore"`
	Sources    []Source          `json:"sources"`
}
