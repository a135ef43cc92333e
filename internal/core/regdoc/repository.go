package regdoc

import (
	"context"

	"github.com/samber/mo"
)

// Repository は規程文書の読み取りアクセスを統合するインターフェース。
// 文書・チャンクの作成と更新はスクレイパおよびインジェスト側の責務で、
// 検索パイプラインからは読み取り専用として扱う。
type Repository interface {
	// GetDocumentByCode はコード完全一致で文書を取得する
	GetDocumentByCode(ctx context.Context, code string) (mo.Option[*Document], error)

	// ListDocumentStats は全文書をコード順に統計付きで返す
	ListDocumentStats(ctx context.Context) ([]*DocumentStats, error)

	// GetChunkByID はチャンクを取得する
	GetChunkByID(ctx context.Context, id int64) (mo.Option[*Chunk], error)

	// ListChunksByDoc は文書配下のチャンクを ordinal 順に返す
	ListChunksByDoc(ctx context.Context, docID int64) ([]*Chunk, error)
}
