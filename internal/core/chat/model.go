package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/mevzuat-rag/internal/core/search"
)

// Stage はワークフローの状態を表す。
// グラフは非循環で、1リクエストにつき前進1回のみ。弱い根拠での自動再検索は行わない。
type Stage string

const (
	// StageRouted は初期状態（クエリ分類済み）
	StageRouted Stage = "routed"
	// StageRetrieved は検索・融合完了
	StageRetrieved Stage = "retrieved"
	// StageGraded は関連度フィルタ完了
	StageGraded Stage = "graded"
	// StageGenerated は回答生成完了（成功系終端）
	StageGenerated Stage = "generated"
	// StageInsufficientEvidence は根拠不足による早期終了（成功系終端）
	StageInsufficientEvidence Stage = "insufficient_evidence"
	// StageFailed は未回復エラーによる終端（どの状態からも遷移可能）
	StageFailed Stage = "failed"
)

// allowedTransitions は状態遷移グラフ。StageFailed は吸収状態として別扱い。
var allowedTransitions = map[Stage][]Stage{
	StageRouted:    {StageRetrieved},
	StageRetrieved: {StageGraded},
	StageGraded:    {StageGenerated, StageInsufficientEvidence},
}

// Citation は回答の根拠参照を表す。
// ChunkID は必ずその生成呼び出しに渡した graded 集合の要素である。
type Citation struct {
	RegCode string `json:"reg_code"`
	ChunkID int64  `json:"chunk_id"`
	Excerpt string `json:"excerpt"`
}

// QueryState はリクエスト1件のワークフロー状態を表す。
// 各ステップで項目が積み上がり、レスポンス返却後に破棄される（永続化しない）。
type QueryState struct {
	RequestID uuid.UUID
	RawQuery  string
	Stage     Stage
	StartedAt time.Time

	Route      search.Route
	Candidates []search.Candidate
	Fused      []search.FusedCandidate
	Graded     []*search.RetrievedChunk

	HasSufficientEvidence bool
	Answer                string
	Citations             []Citation
	Confidence            float64

	Err error
}

// NewQueryState は初期状態（Routed 手前）の QueryState を作成する
func NewQueryState(query string) *QueryState {
	return &QueryState{
		RequestID: uuid.New(),
		RawQuery:  query,
		Stage:     StageRouted,
		StartedAt: time.Now(),
	}
}

// advance は許可された遷移のみ受け付けて状態を進める
func (st *QueryState) advance(to Stage) error {
	for _, allowed := range allowedTransitions[st.Stage] {
		if allowed == to {
			st.Stage = to
			return nil
		}
	}
	return fmt.Errorf("invalid workflow transition: %s -> %s", st.Stage, to)
}

// fail は任意の状態から吸収状態 Failed へ遷移させる
func (st *QueryState) fail(err error) {
	st.Stage = StageFailed
	st.Err = err
}

// Terminal は終端状態かどうかを返す
func (st *QueryState) Terminal() bool {
	switch st.Stage {
	case StageGenerated, StageInsufficientEvidence, StageFailed:
		return true
	}
	return false
}

// Result はワークフローの最終成果物（API境界の応答形）を表す。
// Confidence はヒューリスティックな指標であり、較正済み確率ではない。
type Result struct {
	Answer                string     `json:"answer"`
	Citations             []Citation `json:"citations"`
	Confidence            float64    `json:"confidence"`
	HasSufficientEvidence bool       `json:"has_sufficient_evidence"`
}
