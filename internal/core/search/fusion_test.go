package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(source Source, ids ...int64) []Candidate {
	list := make([]Candidate, 0, len(ids))
	for i, id := range ids {
		list = append(list, Candidate{
			ChunkID: id,
			Rank:    i + 1,
			Source:  source,
		})
	}
	return list
}

// 両リストに現れる候補は寄与の和を獲得する
func TestFuseRanks_SumsContributions(t *testing.T) {
	vector := candidates(SourceVector, 1, 2)  // chunk 1: rank 1, chunk 2: rank 2
	lexical := candidates(SourceLexical, 3, 1) // chunk 3: rank 1, chunk 1: rank 2

	fused := FuseRanks([][]Candidate{vector, lexical}, 60, 0)
	require.Len(t, fused, 3)

	// chunk 1 = 1/61 + 1/62 が最上位
	assert.Equal(t, int64(1), fused[0].ChunkID)
	assert.InDelta(t, 1.0/61.0+1.0/62.0, fused[0].Score, 1e-12)
	assert.ElementsMatch(t, []Source{SourceVector, SourceLexical}, fused[0].Sources)

	// 片側のみの候補は単独寄与
	for _, f := range fused[1:] {
		assert.Len(t, f.Sources, 1)
	}
}

// 同点の候補は chunk id 昇順で安定する
func TestFuseRanks_TieBrokenByChunkID(t *testing.T) {
	vector := candidates(SourceVector, 9)
	lexical := candidates(SourceLexical, 4)

	fused := FuseRanks([][]Candidate{vector, lexical}, 60, 0)
	require.Len(t, fused, 2)
	assert.Equal(t, int64(4), fused[0].ChunkID)
	assert.Equal(t, int64(9), fused[1].ChunkID)
	assert.InDelta(t, fused[0].Score, fused[1].Score, 1e-12)
}

// 切り詰め前の融合結果は両リストの和集合を含む
func TestFuseRanks_UnionBeforeTruncation(t *testing.T) {
	vector := candidates(SourceVector, 1, 2, 3, 4)
	lexical := candidates(SourceLexical, 3, 4, 5, 6)

	fused := FuseRanks([][]Candidate{vector, lexical}, 60, 0)
	assert.Len(t, fused, 6)

	seen := make(map[int64]bool)
	for _, f := range fused {
		seen[f.ChunkID] = true
	}
	for id := int64(1); id <= 6; id++ {
		assert.True(t, seen[id], "chunk %d missing from union", id)
	}
}

func TestFuseRanks_TruncatesToTopN(t *testing.T) {
	vector := candidates(SourceVector, 1, 2, 3, 4, 5)
	lexical := candidates(SourceLexical, 6, 7, 8, 9, 10)

	fused := FuseRanks([][]Candidate{vector, lexical}, 60, 4)
	require.Len(t, fused, 4)

	// スコア降順を維持している
	for i := 1; i < len(fused); i++ {
		assert.GreaterOrEqual(t, fused[i-1].Score, fused[i].Score)
	}
}

// 単一リストの融合はランク順をそのまま保つ
func TestFuseRanks_SingleList(t *testing.T) {
	lexical := candidates(SourceLexical, 7, 3, 5)

	fused := FuseRanks([][]Candidate{lexical}, 60, 12)
	require.Len(t, fused, 3)
	assert.Equal(t, int64(7), fused[0].ChunkID)
	assert.Equal(t, int64(3), fused[1].ChunkID)
	assert.Equal(t, int64(5), fused[2].ChunkID)
	assert.InDelta(t, 1.0/61.0, fused[0].Score, 1e-12)
}

func TestFuseRanks_Deterministic(t *testing.T) {
	vector := candidates(SourceVector, 1, 2, 3)
	lexical := candidates(SourceLexical, 3, 2, 1)

	first := FuseRanks([][]Candidate{vector, lexical}, 60, 12)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FuseRanks([][]Candidate{vector, lexical}, 60, 12))
	}
}

func TestFuseRanks_Empty(t *testing.T) {
	fused := FuseRanks(nil, 60, 12)
	assert.Empty(t, fused)
}
