package chat

import (
	"strings"
	"unicode"

	"github.com/jinford/mevzuat-rag/internal/core/search"
)

// GraderConfig は関連度フィルタのチューニングパラメータを表す
type GraderConfig struct {
	TopM             int     // 融合ランク上位 M 件のみ残す
	MinFusedScore    float64 // キーワード一致がない候補を救済する融合スコア下限
	MinEvidenceCount int     // 根拠十分と判定する最小候補数
}

// DefaultGraderConfig はデフォルトのフィルタ設定を返す
func DefaultGraderConfig() GraderConfig {
	return GraderConfig{
		TopM:             12,
		MinFusedScore:    1.0 / float64(search.DefaultRRFConstant+10),
		MinEvidenceCount: 1,
	}
}

// Grader は LLM を呼ばないヒューリスティックな関連度フィルタ。
// 再現率を犠牲にしてでも、弱い・空のコンテキストから生成しないことを優先する。
type Grader struct {
	cfg GraderConfig
}

// NewGrader は新しい Grader を作成する
func NewGrader(cfg GraderConfig) *Grader {
	def := DefaultGraderConfig()
	if cfg.TopM <= 0 {
		cfg.TopM = def.TopM
	}
	if cfg.MinFusedScore <= 0 {
		cfg.MinFusedScore = def.MinFusedScore
	}
	if cfg.MinEvidenceCount <= 0 {
		cfg.MinEvidenceCount = def.MinEvidenceCount
	}
	return &Grader{cfg: cfg}
}

// Grade は融合順の候補をフィルタし、残存候補と根拠十分判定を返す。
// 保持条件: 融合ランクが上位 M 以内、かつ（正規化済みクエリトークンとの
// 本文一致が1件以上 or 融合スコアが下限超え）。決定的で I/O なし。
func (g *Grader) Grade(query string, chunks []*search.RetrievedChunk) ([]*search.RetrievedChunk, bool) {
	queryTokens := normalizeTokens(query)

	graded := make([]*search.RetrievedChunk, 0, len(chunks))
	for rank, chunk := range chunks {
		if rank+1 > g.cfg.TopM {
			break
		}
		if overlapCount(queryTokens, chunk.Content) > 0 || chunk.FusedScore > g.cfg.MinFusedScore {
			graded = append(graded, chunk)
		}
	}

	sufficient := len(graded) >= g.cfg.MinEvidenceCount
	return graded, sufficient
}

// stopWords は一致判定から除外する機能語（英語＋トルコ語の頻出語）
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "what": {}, "how": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "does": {}, "say": {},
	"for": {}, "of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "by": {},
	"with": {}, "and": {}, "or": {}, "about": {},
	"ve": {}, "veya": {}, "ile": {}, "için": {}, "bir": {}, "bu": {},
	"ne": {}, "nedir": {}, "nasıl": {}, "hangi": {}, "mi": {}, "mu": {},
}

// normalizeTokens はクエリをケースフォールド・記号除去・ストップワード除去し、
// 素朴な接尾辞除去（英語の複数形、トルコ語の複数・格接尾辞）で正規化する。
func normalizeTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 2 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		tokens = append(tokens, stemToken(f))
	}
	return tokens
}

// turkishSuffixes は長い順に試す接尾辞（複数形・所有格・格語尾の一部）
var turkishSuffixes = []string{"ları", "leri", "lar", "ler", "ının", "inin", "nın", "nin", "sı", "si"}

// stemToken は本格的な形態素解析の代わりに、末尾の頻出接尾辞だけ取り除く
func stemToken(token string) string {
	runes := []rune(token)
	for _, suffix := range turkishSuffixes {
		sr := []rune(suffix)
		if len(runes) > len(sr)+2 && strings.HasSuffix(token, suffix) {
			return string(runes[:len(runes)-len(sr)])
		}
	}
	if len(runes) > 3 && strings.HasSuffix(token, "es") {
		return string(runes[:len(runes)-2])
	}
	if len(runes) > 3 && strings.HasSuffix(token, "s") {
		return string(runes[:len(runes)-1])
	}
	return token
}

// overlapCount は正規化済みクエリトークンのうち本文に現れる個数を返す
func overlapCount(queryTokens []string, content string) int {
	if len(queryTokens) == 0 {
		return 0
	}
	contentLower := strings.ToLower(content)
	count := 0
	for _, token := range queryTokens {
		if strings.Contains(contentLower, token) {
			count++
		}
	}
	return count
}
