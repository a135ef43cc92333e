package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
	"github.com/jinford/mevzuat-rag/internal/core/search"
)

// CompletionRequest は Completion サービスへの要求を表す
type CompletionRequest struct {
	Prompt         string
	Model          string // 空ならクライアント側のデフォルト
	Temperature    float64
	MaxTokens      int
	ResponseFormat string // "json" で JSON オブジェクト出力を要求
}

// CompletionResponse は Completion サービスの応答を表す
type CompletionResponse struct {
	Content    string
	TokensUsed int
	Model      string
}

// LLMClient は Completion サービス通信インターフェース。
// リトライ（有限回の指数バックオフ）は実装側で完結し、ここに返るエラーは致命的。
type LLMClient interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Generator は graded コンテキストに制限した回答合成を行う
type Generator struct {
	llm    LLMClient
	logger *slog.Logger
}

// GeneratorOption は Generator のオプション設定
type GeneratorOption func(*Generator)

// WithGeneratorLogger は Generator にロガーを設定する
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator は新しい Generator を作成する
func NewGenerator(llm LLMClient, opts ...GeneratorOption) *Generator {
	g := &Generator{
		llm:    llm,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// generationPayload は Completion サービスの JSON 応答形。
// citations が欠けていても空として扱い、エラーにはしない。
type generationPayload struct {
	Answer    string `json:"answer"`
	Citations []struct {
		RegCode string `json:"reg_code"`
		ChunkID int64  `json:"chunk_id"`
		Excerpt string `json:"excerpt"`
	} `json:"citations"`
}

// Generation は回答合成の結果を表す
type Generation struct {
	Answer     string
	Citations  []Citation
	Confidence float64
}

// Generate はコンテキストに接地した回答と引用を生成する。
// 不変条件: 返す引用の chunk_id は必ず入力コンテキストの要素。上流サービスが
// 存在しない id を捏造しても、返却前に必ず除去する。
func (g *Generator) Generate(ctx context.Context, query string, chunks []*search.RetrievedChunk) (*Generation, error) {
	prompt := BuildAnswerPrompt(query, chunks)

	resp, err := g.llm.GenerateCompletion(ctx, CompletionRequest{
		Prompt:         prompt,
		Temperature:    0.1,
		ResponseFormat: "json",
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fault.NewUpstream("completion", ctx.Err())
		}
		if fault.IsUpstream(err) {
			return nil, err
		}
		return nil, fault.NewUpstream("completion", err)
	}

	answer, citations := g.parseGeneration(resp.Content, chunks)

	return &Generation{
		Answer:     answer,
		Citations:  citations,
		Confidence: heuristicConfidence(chunks),
	}, nil
}

// parseGeneration は応答 JSON を解析し、接地した引用だけを残す。
// JSON として読めない応答は本文をそのまま回答とし、引用はコンテキストから導出する。
func (g *Generator) parseGeneration(content string, chunks []*search.RetrievedChunk) (string, []Citation) {
	inContext := make(map[int64]*search.RetrievedChunk, len(chunks))
	for _, chunk := range chunks {
		inContext[chunk.ChunkID] = chunk
	}

	var payload generationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || payload.Answer == "" {
		g.logger.Warn("completion response is not valid JSON, falling back to plain answer")
		return content, citationsFromContext(chunks)
	}

	citations := make([]Citation, 0, len(payload.Citations))
	for _, c := range payload.Citations {
		chunk, ok := inContext[c.ChunkID]
		if !ok {
			g.logger.Warn("dropping ungrounded citation", "chunkID", c.ChunkID, "regCode", c.RegCode)
			continue
		}
		excerpt := c.Excerpt
		if excerpt == "" {
			excerpt = truncate(chunk.Content, maxExcerptChars)
		}
		citations = append(citations, Citation{
			RegCode: chunk.RegCode,
			ChunkID: c.ChunkID,
			Excerpt: excerpt,
		})
	}

	// 引用が1件も残らなかった場合はコンテキスト由来で補う
	if len(citations) == 0 {
		citations = citationsFromContext(chunks)
	}
	return payload.Answer, citations
}

// citationsFromContext は使用したコンテキスト全体から引用を導出する
func citationsFromContext(chunks []*search.RetrievedChunk) []Citation {
	citations := make([]Citation, 0, len(chunks))
	for _, chunk := range chunks {
		citations = append(citations, Citation{
			RegCode: chunk.RegCode,
			ChunkID: chunk.ChunkID,
			Excerpt: truncate(chunk.Content, maxExcerptChars),
		})
	}
	return citations
}

// heuristicConfidence は graded 候補数と融合スコア総量から [0,1] の指標を算出する。
// 較正済み確率ではなく、件数とスコアの相対的な手がかりに過ぎない。
func heuristicConfidence(chunks []*search.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}

	countFactor := math.Min(float64(len(chunks)), 5) / 5

	var mass float64
	for _, chunk := range chunks {
		mass += chunk.FusedScore
	}
	// RRF スコアは 1/(k+1) が上限に近いので、総量を [0,1) に押し込む
	massFactor := mass / (mass + 1.0/float64(search.DefaultRRFConstant))

	confidence := 0.6*countFactor + 0.4*massFactor
	return math.Min(math.Max(confidence, 0), 1)
}
