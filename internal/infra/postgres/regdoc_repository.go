package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/mevzuat-rag/internal/core/fault"
	"github.com/jinford/mevzuat-rag/internal/core/ingestion"
	"github.com/jinford/mevzuat-rag/internal/core/regdoc"
)

// RegDocRepository は規程文書の読み取りとチャンク入れ替えを提供する
// PostgreSQL リポジトリ。
type RegDocRepository struct {
	pool *pgxpool.Pool
}

// NewRegDocRepository は新しい RegDocRepository を返す。
func NewRegDocRepository(pool *pgxpool.Pool) *RegDocRepository {
	return &RegDocRepository{pool: pool}
}

var (
	_ regdoc.Repository    = (*RegDocRepository)(nil)
	_ ingestion.Repository = (*RegDocRepository)(nil)
)

const documentColumns = `
	d.id, d.code, d.title, d.url, d.parent_code, d.depth, d.sort_key,
	d.language, d.text_content, d.raw_html, d.content_sha256, d.scraped_at`

func scanDocument(row pgx.Row) (*regdoc.Document, error) {
	var (
		doc           regdoc.Document
		url           *string
		parentCode    *string
		textContent   *string
		rawHTML       *string
		contentSHA256 *string
	)
	err := row.Scan(
		&doc.ID, &doc.Code, &doc.Title, &url, &parentCode, &doc.Depth, &doc.SortKey,
		&doc.Language, &textContent, &rawHTML, &contentSHA256, &doc.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.URL = optionFromPtr(url)
	doc.ParentCode = optionFromPtr(parentCode)
	doc.TextContent = optionFromPtr(textContent)
	doc.RawHTML = optionFromPtr(rawHTML)
	doc.ContentSHA256 = optionFromPtr(contentSHA256)
	return &doc, nil
}

// GetDocumentByCode は規程コードで文書を1件取得する。
func (r *RegDocRepository) GetDocumentByCode(ctx context.Context, code string) (mo.Option[*regdoc.Document], error) {
	query := `SELECT ` + documentColumns + ` FROM reg_doc d WHERE d.code = $1`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*regdoc.Document](), nil
		}
		return mo.None[*regdoc.Document](), fault.NewStorage("get document by code", err)
	}
	return mo.Some(doc), nil
}

// ListDocumentStats は全文書をチャンク数・イベント数付きで返す。
func (r *RegDocRepository) ListDocumentStats(ctx context.Context) ([]*regdoc.DocumentStats, error) {
	query := `
		SELECT ` + documentColumns + `,
		       (SELECT count(*) FROM reg_doc_chunk c WHERE c.doc_id = d.id) AS chunk_count,
		       (SELECT count(*) FROM reg_doc_event e WHERE e.doc_id = d.id) AS event_count
		FROM reg_doc d
		ORDER BY d.sort_key, d.code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fault.NewStorage("list document stats", err)
	}
	defer rows.Close()

	var stats []*regdoc.DocumentStats
	for rows.Next() {
		var (
			doc           regdoc.Document
			url           *string
			parentCode    *string
			textContent   *string
			rawHTML       *string
			contentSHA256 *string
			st            regdoc.DocumentStats
		)
		err := rows.Scan(
			&doc.ID, &doc.Code, &doc.Title, &url, &parentCode, &doc.Depth, &doc.SortKey,
			&doc.Language, &textContent, &rawHTML, &contentSHA256, &doc.ScrapedAt,
			&st.ChunkCount, &st.EventCount,
		)
		if err != nil {
			return nil, fault.NewStorage("list document stats", err)
		}
		doc.URL = optionFromPtr(url)
		doc.ParentCode = optionFromPtr(parentCode)
		doc.TextContent = optionFromPtr(textContent)
		doc.RawHTML = optionFromPtr(rawHTML)
		doc.ContentSHA256 = optionFromPtr(contentSHA256)
		st.Document = &doc
		stats = append(stats, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStorage("list document stats", err)
	}
	return stats, nil
}

const chunkColumns = `c.id, c.doc_id, c.ordinal, c.heading, c.content, c.token_count`

func scanChunk(row pgx.Row) (*regdoc.Chunk, error) {
	var (
		chunk   regdoc.Chunk
		heading *string
	)
	if err := row.Scan(&chunk.ID, &chunk.DocID, &chunk.Ordinal, &heading, &chunk.Content, &chunk.TokenCount); err != nil {
		return nil, err
	}
	chunk.Heading = optionFromPtr(heading)
	return &chunk, nil
}

// GetChunkByID はチャンクを1件取得する。Embedding は含まない。
func (r *RegDocRepository) GetChunkByID(ctx context.Context, id int64) (mo.Option[*regdoc.Chunk], error) {
	query := `SELECT ` + chunkColumns + ` FROM reg_doc_chunk c WHERE c.id = $1`

	chunk, err := scanChunk(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*regdoc.Chunk](), nil
		}
		return mo.None[*regdoc.Chunk](), fault.NewStorage("get chunk by id", err)
	}
	return mo.Some(chunk), nil
}

// ListChunksByDoc は文書配下のチャンクを ordinal 順で返す。
func (r *RegDocRepository) ListChunksByDoc(ctx context.Context, docID int64) ([]*regdoc.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM reg_doc_chunk c WHERE c.doc_id = $1 ORDER BY c.ordinal`

	rows, err := r.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, fault.NewStorage("list chunks by doc", err)
	}
	defer rows.Close()

	var chunks []*regdoc.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fault.NewStorage("list chunks by doc", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStorage("list chunks by doc", err)
	}
	return chunks, nil
}

// ListDocumentsNeedingChunks は本文を持ち、チャンク生成元ハッシュが
// 現在の本文ハッシュと一致しない文書を返す。
func (r *RegDocRepository) ListDocumentsNeedingChunks(ctx context.Context) ([]*regdoc.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM reg_doc d
		WHERE d.text_content IS NOT NULL
		  AND d.chunk_sha256 IS DISTINCT FROM d.content_sha256
		ORDER BY d.sort_key, d.code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fault.NewStorage("list documents needing chunks", err)
	}
	defer rows.Close()

	var docs []*regdoc.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fault.NewStorage("list documents needing chunks", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.NewStorage("list documents needing chunks", err)
	}
	return docs, nil
}

// ReplaceChunks は文書配下のチャンクをトランザクション内で入れ替え、
// チャンク生成元の本文ハッシュを記録する。
func (r *RegDocRepository) ReplaceChunks(ctx context.Context, docID int64, sourceSHA256 string, chunks []*regdoc.Chunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fault.NewStorage("replace chunks", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reg_doc_chunk WHERE doc_id = $1`, docID); err != nil {
		return fault.NewStorage("replace chunks", err)
	}

	const insert = `
		INSERT INTO reg_doc_chunk (doc_id, ordinal, heading, content, token_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, chunk := range chunks {
		var embedding any
		if len(chunk.Embedding) > 0 {
			embedding = pgvector.NewVector(chunk.Embedding)
		}
		_, err := tx.Exec(ctx, insert,
			docID,
			chunk.Ordinal,
			ptrFromOption(chunk.Heading),
			chunk.Content,
			chunk.TokenCount,
			embedding,
		)
		if err != nil {
			return fault.NewStorage("replace chunks", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE reg_doc SET chunk_sha256 = $1 WHERE id = $2`, sourceSHA256, docID); err != nil {
		return fault.NewStorage("replace chunks", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fault.NewStorage("replace chunks", err)
	}
	return nil
}
