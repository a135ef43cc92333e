package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/mevzuat-rag/internal/core/search"
)

func retrieved(id int64, content string, score float64) *search.RetrievedChunk {
	return &search.RetrievedChunk{
		ChunkID:    id,
		RegCode:    "5.1",
		Content:    content,
		FusedScore: score,
	}
}

func TestGrade_KeepsKeywordMatches(t *testing.T) {
	grader := NewGrader(DefaultGraderConfig())

	chunks := []*search.RetrievedChunk{
		retrieved(1, "Graduation requires 240 ECTS credits.", 0.001),
		retrieved(2, "Library opening hours are 8:00-22:00.", 0.001),
	}

	graded, sufficient := grader.Grade("What are the graduation requirements?", chunks)
	require.Len(t, graded, 1)
	assert.Equal(t, int64(1), graded[0].ChunkID)
	assert.True(t, sufficient)
}

// キーワード一致がなくても融合スコアが下限を超えていれば残す
func TestGrade_RescuesHighFusedScore(t *testing.T) {
	grader := NewGrader(DefaultGraderConfig())

	chunks := []*search.RetrievedChunk{
		retrieved(1, "Tamamen alakasız içerik.", 1.0/61.0 + 1.0/61.0),
	}

	graded, sufficient := grader.Grade("What are the graduation requirements?", chunks)
	require.Len(t, graded, 1)
	assert.True(t, sufficient)
}

func TestGrade_DropsWeakChunks(t *testing.T) {
	grader := NewGrader(DefaultGraderConfig())

	chunks := []*search.RetrievedChunk{
		retrieved(1, "Unrelated text about parking.", 0.0001),
		retrieved(2, "Another unrelated passage.", 0.0001),
	}

	graded, sufficient := grader.Grade("What are the graduation requirements?", chunks)
	assert.Empty(t, graded)
	assert.False(t, sufficient)
}

func TestGrade_HonorsTopM(t *testing.T) {
	grader := NewGrader(GraderConfig{TopM: 2, MinFusedScore: 0.0001, MinEvidenceCount: 1})

	chunks := []*search.RetrievedChunk{
		retrieved(1, "graduation", 0.5),
		retrieved(2, "graduation", 0.5),
		retrieved(3, "graduation", 0.5),
	}

	graded, _ := grader.Grade("graduation", chunks)
	assert.Len(t, graded, 2)
}

func TestGrade_EmptyInputIsInsufficient(t *testing.T) {
	grader := NewGrader(DefaultGraderConfig())

	graded, sufficient := grader.Grade("herhangi bir soru", nil)
	assert.Empty(t, graded)
	assert.False(t, sufficient)
}

func TestNormalizeTokens(t *testing.T) {
	tokens := normalizeTokens("What are the graduation requirements?")
	assert.Contains(t, tokens, "graduation")
	assert.Contains(t, tokens, "requirement")
	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "what")
}

func TestStemToken_TurkishSuffixes(t *testing.T) {
	assert.Equal(t, "öğrenci", stemToken("öğrencileri"))
	assert.Equal(t, "koşul", stemToken("koşulları"))
	// 短いトークンは削らない
	assert.Equal(t, "ler", stemToken("ler"))
}
