package chat

import (
	"fmt"
	"strings"

	"github.com/jinford/mevzuat-rag/internal/core/search"
)

// 1チャンクあたりプロンプトへ載せる本文の上限（文字数）
const maxContextChars = 2000

// 引用の抜粋として保持する上限（文字数）
const maxExcerptChars = 200

// BuildAnswerPrompt は graded コンテキストに制限した回答生成プロンプトを構築する。
// 出力は JSON（answer / citations / confidence）を要求し、引用は必ず
// コンテキスト内の chunk_id を指すよう指示する。
func BuildAnswerPrompt(query string, chunks []*search.RetrievedChunk) string {
	var sb strings.Builder

	sb.WriteString("You are a legal regulations assistant for a university regulations database.\n")
	sb.WriteString("Answer the question based ONLY on the regulation documents below.\n\n")

	sb.WriteString("## Rules\n")
	sb.WriteString("- Every substantive claim MUST be backed by one of the provided documents\n")
	sb.WriteString("- Cite sources only by the reg_code and chunk_id shown in the context\n")
	sb.WriteString("- If the documents do not fully answer the question, say so explicitly\n")
	sb.WriteString("- Quote relevant excerpts when making claims; avoid speculation\n\n")

	sb.WriteString("## Context: regulation documents\n")
	for i, chunk := range chunks {
		sb.WriteString(fmt.Sprintf("### [Document %d] reg_code: %s, chunk_id: %d\n", i+1, chunk.RegCode, chunk.ChunkID))
		if heading, ok := chunk.Heading.Get(); ok {
			sb.WriteString(fmt.Sprintf("Heading: %s\n", heading))
		}
		sb.WriteString(truncate(chunk.Content, maxContextChars))
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Question\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString("## Output format\n")
	sb.WriteString("Respond with a single JSON object:\n")
	sb.WriteString(`{"answer": "...", "citations": [{"reg_code": "...", "chunk_id": 0, "excerpt": "..."}]}`)
	sb.WriteString("\nEach citation's chunk_id must be one of the chunk_ids listed in the context.\n")

	return sb.String()
}

// BuildInsufficientAnswer は根拠不足時の定型回答を組み立てる。
// 生成サービスは呼ばず、検索で考慮した規程コードだけを提示する。
func BuildInsufficientAnswer(route search.Route, chunks []*search.RetrievedChunk) string {
	var sb strings.Builder

	sb.WriteString("I searched the regulations database but could not find sufficient information to answer your question.\n\n")
	sb.WriteString(fmt.Sprintf("Search strategy: %s\n", route.Kind))

	codes := distinctRegCodes(chunks)
	if len(codes) > 0 {
		sb.WriteString(fmt.Sprintf("Regulation codes considered: %s\n", strings.Join(codes, ", ")))
	} else {
		sb.WriteString("No matching documents were found.\n")
	}

	sb.WriteString("\nPlease try rephrasing your question, or ask about a specific regulation section if you know its code (e.g. \"What does section 5.1.2 say?\").")
	return sb.String()
}

// distinctRegCodes は出現順を保ちつつ重複を除いた規程コード一覧を返す（最大5件）
func distinctRegCodes(chunks []*search.RetrievedChunk) []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.RegCode]; ok {
			continue
		}
		seen[chunk.RegCode] = struct{}{}
		codes = append(codes, chunk.RegCode)
		if len(codes) >= 5 {
			break
		}
	}
	return codes
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
