package search

import "sort"

// Reciprocal Rank Fusion のデフォルト定数。
// コサイン距離と字句関連度はスケールが比較不能なため、スコア正規化ではなく
// ランクのみで融合する。調整は config 経由で行い、ここの値は既定値に留める。
const (
	// DefaultRRFConstant は RRF の平滑化定数 k
	DefaultRRFConstant = 60
	// DefaultTopKFused は融合後に残す候補数
	DefaultTopKFused = 12
)

// FuseRanks は複数の候補リストを Reciprocal Rank Fusion で1本に融合する。
// 各リストでランク r の候補は 1/(kConst+r) を獲得し、複数リストに現れた候補は
// 寄与の「和」を取る（平均ではない）。両経路の一致を加点するための設計。
// 出力は融合スコア降順、同点は chunk id 昇順で、topN 件に切り詰める。
// 純粋関数であり、同一入力に対して常に同一の出力を返す。
func FuseRanks(lists [][]Candidate, kConst, topN int) []FusedCandidate {
	if kConst <= 0 {
		kConst = DefaultRRFConstant
	}

	scores := make(map[int64]float64)
	sources := make(map[int64][]Source)
	for _, list := range lists {
		for _, c := range list {
			scores[c.ChunkID] += 1.0 / float64(kConst+c.Rank)
			sources[c.ChunkID] = append(sources[c.ChunkID], c.Source)
		}
	}

	fused := make([]FusedCandidate, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, FusedCandidate{
			ChunkID: id,
			Score:   score,
			Sources: sources[id],
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	if topN > 0 && len(fused) > topN {
		fused = fused[:topN]
	}
	return fused
}
