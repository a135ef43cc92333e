package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
	"github.com/jinford/mevzuat-rag/internal/core/search"
)

// SearchRepository は core/search.Repository を実装する PostgreSQL リポジトリ。
type SearchRepository struct {
	pool *pgxpool.Pool
}

// NewSearchRepository は新しい SearchRepository を返す。
func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

var _ search.Repository = (*SearchRepository)(nil)

// NearestChunks はクエリベクトルとのコサイン距離が近い順にチャンクを返す。
// 距離が同値の場合は id 昇順で安定させる。
func (r *SearchRepository) NearestChunks(ctx context.Context, queryVector []float32, limit int) ([]search.Candidate, error) {
	const query = `
		SELECT c.id, 1 - (c.embedding <=> $1) AS similarity
		FROM reg_doc_chunk c
		WHERE c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $1, c.id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fault.NewStorage("nearest chunks", err)
	}
	defer rows.Close()

	var candidates []search.Candidate
	for rows.Next() {
		var (
			chunkID int64
			score   float64
		)
		if err := rows.Scan(&chunkID, &score); err != nil {
			return nil, fault.NewStorage("nearest chunks", err)
		}
		candidates = append(candidates, search.Candidate{
			ChunkID:  chunkID,
			Rank:     len(candidates) + 1,
			RawScore: score,
			Source:   search.SourceVector,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStorage("nearest chunks", err)
	}
	return candidates, nil
}

// LexicalChunks はスコープに応じた字句検索でチャンクを返す。
func (r *SearchRepository) LexicalChunks(ctx context.Context, query string, limit int, scope search.LexicalScope) ([]search.Candidate, error) {
	switch scope {
	case search.ScopeCode:
		return r.lexicalByCode(ctx, query, limit)
	case search.ScopeMetadata:
		return r.lexicalByMetadata(ctx, query, limit)
	default:
		return r.lexicalByContent(ctx, query, limit)
	}
}

// lexicalByContent はチャンク本文の全文検索を行う。
func (r *SearchRepository) lexicalByContent(ctx context.Context, query string, limit int) ([]search.Candidate, error) {
	const sql = `
		SELECT c.id,
		       ts_rank(to_tsvector('simple', c.content), plainto_tsquery('simple', $1)) AS score
		FROM reg_doc_chunk c
		WHERE to_tsvector('simple', c.content) @@ plainto_tsquery('simple', $1)
		ORDER BY score DESC, c.id
		LIMIT $2`

	return r.collectCandidates(ctx, "lexical content search", sql, query, limit)
}

// lexicalByCode は規程コードの完全一致と下位コード（prefix 一致）でチャンクを返す。
// コード検索はスコアを持たないため、文書の並び順とチャンク順をランクとする。
func (r *SearchRepository) lexicalByCode(ctx context.Context, code string, limit int) ([]search.Candidate, error) {
	const sql = `
		SELECT c.id, 1.0 AS score
		FROM reg_doc_chunk c
		JOIN reg_doc d ON d.id = c.doc_id
		WHERE d.code = $1 OR d.code LIKE $1 || '.%'
		ORDER BY d.sort_key, c.ordinal, c.id
		LIMIT $2`

	return r.collectCandidates(ctx, "lexical code search", sql, code, limit)
}

// lexicalByMetadata は官報イベント（R.G. 番号、A.E. 番号、EK、施行日）で
// 一致した文書のチャンクを返す。
func (r *SearchRepository) lexicalByMetadata(ctx context.Context, token string, limit int) ([]search.Candidate, error) {
	const sql = `
		SELECT DISTINCT ON (c.id) c.id, 1.0 AS score
		FROM reg_doc_chunk c
		JOIN reg_doc_event e ON e.doc_id = c.doc_id
		WHERE e.rg_no = $1
		   OR e.ae_no = $1
		   OR e.ek = $1
		   OR to_char(e.event_date, 'DD.MM.YYYY') = $1
		ORDER BY c.id
		LIMIT $2`

	return r.collectCandidates(ctx, "lexical metadata search", sql, token, limit)
}

func (r *SearchRepository) collectCandidates(ctx context.Context, op string, sql string, arg string, limit int) ([]search.Candidate, error) {
	rows, err := r.pool.Query(ctx, sql, arg, limit)
	if err != nil {
		return nil, fault.NewStorage(op, err)
	}
	defer rows.Close()

	var candidates []search.Candidate
	for rows.Next() {
		var (
			chunkID int64
			score   float64
		)
		if err := rows.Scan(&chunkID, &score); err != nil {
			return nil, fault.NewStorage(op, err)
		}
		candidates = append(candidates, search.Candidate{
			ChunkID:  chunkID,
			Rank:     len(candidates) + 1,
			RawScore: score,
			Source:   search.SourceLexical,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStorage(op, err)
	}
	return candidates, nil
}

// HydrateChunks は融合済み候補に本文と文書情報を付与する。
// 返り値は fused の順序を保ち、存在しない id は黙ってスキップする。
func (r *SearchRepository) HydrateChunks(ctx context.Context, fused []search.FusedCandidate) ([]*search.RetrievedChunk, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}

	const sql = `
		SELECT c.id, c.doc_id, d.code, d.url, c.heading, c.content
		FROM reg_doc_chunk c
		JOIN reg_doc d ON d.id = c.doc_id
		WHERE c.id = ANY($1)`

	rows, err := r.pool.Query(ctx, sql, ids)
	if err != nil {
		return nil, fault.NewStorage("hydrate chunks", err)
	}
	defer rows.Close()

	byID := make(map[int64]*search.RetrievedChunk, len(fused))
	for rows.Next() {
		var (
			chunk   search.RetrievedChunk
			url     *string
			heading *string
		)
		if err := rows.Scan(&chunk.ChunkID, &chunk.DocID, &chunk.RegCode, &url, &heading, &chunk.Content); err != nil {
			return nil, fault.NewStorage("hydrate chunks", err)
		}
		chunk.URL = optionFromPtr(url)
		chunk.Heading = optionFromPtr(heading)
		byID[chunk.ChunkID] = &chunk
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStorage("hydrate chunks", err)
	}

	chunks := make([]*search.RetrievedChunk, 0, len(fused))
	for _, f := range fused {
		chunk, ok := byID[f.ChunkID]
		if !ok {
			continue
		}
		chunk.FusedScore = f.Score
		chunk.Sources = f.Sources
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}
