package regdoc

import (
	"time"

	"github.com/samber/mo"
)

// Document は規程文書（目次ノードとそのページ本文）を表す
type Document struct {
	ID            int64             `json:"id"`
	Code          string            `json:"code"`       // 規程コード（例: "5.1.2"）、一意
	Title         string            `json:"title"`      // 目次上のタイトル
	URL           mo.Option[string] `json:"url"`        // 元ページURL
	ParentCode    mo.Option[string] `json:"parentCode"` // 親ノードのコード（自己参照）
	Depth         int               `json:"depth"`      // 目次階層の深さ
	SortKey       int               `json:"sortKey"`
	Language      string            `json:"language"`
	TextContent   mo.Option[string] `json:"textContent"` // 抽出済み本文
	RawHTML       mo.Option[string] `json:"-"`
	ContentSHA256 mo.Option[string] `json:"contentSHA256"` // 本文変更検知用ハッシュ
	ScrapedAt     time.Time         `json:"scrapedAt"`
}

// Chunk は検索の最小単位となる文書断片を表す。
// Embedding が空のチャンクはベクトル検索の対象外だが、字句検索には引き続き載る。
type Chunk struct {
	ID         int64             `json:"id"`
	DocID      int64             `json:"docID"`
	Ordinal    int               `json:"ordinal"` // 文書内で一意
	Heading    mo.Option[string] `json:"heading"`
	Content    string            `json:"content"`
	TokenCount int               `json:"tokenCount"`
	Embedding  []float32         `json:"-"` // 次元数はプロセス全体で固定
}

// Event は規程の制定・改訂イベント（官報メタデータ）を表す
type Event struct {
	ID        int64             `json:"id"`
	DocID     int64             `json:"docID"`
	EventDate time.Time         `json:"eventDate"`
	RGNo      mo.Option[string] `json:"rgNo"` // 官報番号 (R.G.)
	EK        mo.Option[string] `json:"ek"`   // 附則番号（ローマ数字）
	AENo      mo.Option[string] `json:"aeNo"` // 決定番号 (A.E.)
}

// DocumentStats は一覧表示用の文書統計を表す
type DocumentStats struct {
	Document   *Document `json:"document"`
	ChunkCount int       `json:"chunkCount"`
	EventCount int       `json:"eventCount"`
}
