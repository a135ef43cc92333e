package ingestion

import (
	"regexp"
	"strings"

	"github.com/samber/mo"

	"github.com/jinford/mevzuat-rag/internal/core/regdoc"
)

// TokenCounter はテキストのトークン数を数えるインターフェース
type TokenCounter interface {
	Count(text string) int
}

// ChunkerConfig はチャンク分割のチューニングパラメータを表す
type ChunkerConfig struct {
	MaxTokens     int // 1チャンクの上限トークン数
	OverlapTokens int // 分割境界で引き継ぐおおよそのトークン数
}

// DefaultChunkerConfig はデフォルトのチャンク設定を返す
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     512,
		OverlapTokens: 64,
	}
}

// Chunker は規程本文を見出し単位＋トークン上限でチャンクに分割する
type Chunker struct {
	counter TokenCounter
	cfg     ChunkerConfig
}

// NewChunker は新しい Chunker を作成する
func NewChunker(counter TokenCounter, cfg ChunkerConfig) *Chunker {
	def := DefaultChunkerConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = def.OverlapTokens
	}
	return &Chunker{counter: counter, cfg: cfg}
}

// 見出しらしい行: "MADDE 5", "Bölüm 2", "5.1.2 Graduation Requirements" 等の
// 短い行をセクション境界とみなす
var headingLine = regexp.MustCompile(`^(?:(?i:madde|bölüm|section|ek)\s+\S+|\d+(?:\.\d+)*\s+\S.*)$`)

// section は見出しとそれに続く段落群
type section struct {
	heading    mo.Option[string]
	paragraphs []string
}

// Split は文書本文をチャンク列に分割する。
// ordinal は 0 始まりで文書内一意。見出しは配下の全チャンクへ引き継がれる。
func (c *Chunker) Split(doc *regdoc.Document) []*regdoc.Chunk {
	text, ok := doc.TextContent.Get()
	if !ok || strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []*regdoc.Chunk
	for _, sec := range splitSections(text) {
		chunks = append(chunks, c.packSection(doc.ID, sec, len(chunks))...)
	}
	return chunks
}

// splitSections は本文を見出し行でセクションに区切る
func splitSections(text string) []section {
	var sections []section
	current := section{}

	flush := func() {
		if len(current.paragraphs) > 0 {
			sections = append(sections, current)
		}
	}

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		firstLine, rest, _ := strings.Cut(block, "\n")
		firstLine = strings.TrimSpace(firstLine)

		if len(firstLine) <= 80 && headingLine.MatchString(firstLine) {
			flush()
			current = section{heading: mo.Some(firstLine)}
			if rest = strings.TrimSpace(rest); rest != "" {
				current.paragraphs = append(current.paragraphs, rest)
			}
			continue
		}
		current.paragraphs = append(current.paragraphs, block)
	}
	flush()
	return sections
}

// packSection はセクション内の段落をトークン上限まで詰め込む。
// 上限を超える単一段落はそのまま1チャンクとする（文中分割はしない）。
func (c *Chunker) packSection(docID int64, sec section, nextOrdinal int) []*regdoc.Chunk {
	var chunks []*regdoc.Chunk
	var buf []string
	bufTokens := 0

	emit := func() {
		if len(buf) == 0 {
			return
		}
		content := strings.Join(buf, "\n\n")
		chunks = append(chunks, &regdoc.Chunk{
			DocID:      docID,
			Ordinal:    nextOrdinal + len(chunks),
			Heading:    sec.heading,
			Content:    content,
			TokenCount: c.counter.Count(content),
		})
	}

	for _, para := range sec.paragraphs {
		tokens := c.counter.Count(para)
		if bufTokens > 0 && bufTokens+tokens > c.cfg.MaxTokens {
			emit()
			// 直前の段落を次チャンクの先頭へ引き継いで文脈を保つ
			if c.cfg.OverlapTokens > 0 {
				last := buf[len(buf)-1]
				if lastTokens := c.counter.Count(last); lastTokens <= c.cfg.OverlapTokens {
					buf = []string{last}
					bufTokens = lastTokens
				} else {
					buf = nil
					bufTokens = 0
				}
			} else {
				buf = nil
				bufTokens = 0
			}
		}
		buf = append(buf, para)
		bufTokens += tokens
	}
	emit()
	return chunks
}
