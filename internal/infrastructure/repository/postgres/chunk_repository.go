package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/querylab/docquery/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// SaveChunks replaces the document's chunk rows. Re-processing a
// document must not leave stale chunks behind.
func (r *ChunkRepository) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "chunks.save", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "chunks.save", err)
	}

	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO document_chunks (document_id, chunk_index, content, start_char, end_char, vector_id)
VALUES ($1,$2,$3,$4,$5,$6)
`, documentID, chunk.ChunkIndex, chunk.Content, chunk.StartChar, chunk.EndChar, chunk.VectorID); err != nil {
			return domain.WrapError(domain.ErrBackendUnavailable, "chunks.save", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "chunks.save", err)
	}
	return nil
}

// SetVectorIDs backfills vector ids after indexing, matching by chunk
// order.
func (r *ChunkRepository) SetVectorIDs(ctx context.Context, documentID string, vectorIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "chunks.set_vector_ids", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, vectorID := range vectorIDs {
		if _, err := tx.ExecContext(ctx, `
UPDATE document_chunks SET vector_id = $3
WHERE document_id = $1 AND chunk_index = $2
`, documentID, i, vectorID); err != nil {
			return domain.WrapError(domain.ErrBackendUnavailable, "chunks.set_vector_ids", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "chunks.set_vector_ids", err)
	}
	return nil
}

// ListChunks serves the lexical-search scan: chunks of completed
// documents joined with their parent's title and domain.
func (r *ChunkRepository) ListChunks(ctx context.Context, filter domain.SearchFilter) ([]domain.StoredChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.document_id, c.chunk_index, c.content, c.start_char, c.end_char, c.vector_id, d.title, d.domain
FROM document_chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = 'completed'
  AND ($1 = '' OR c.document_id = $1)
  AND ($2 = '' OR d.domain = $2)
ORDER BY c.document_id, c.chunk_index
`, filter.DocumentID, string(filter.Domain))
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "chunks.list", err)
	}
	defer rows.Close()

	var chunks []domain.StoredChunk
	for rows.Next() {
		var chunk domain.StoredChunk
		var rowID int64
		var dom string
		if err := rows.Scan(
			&rowID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content,
			&chunk.StartChar, &chunk.EndChar, &chunk.VectorID,
			&chunk.DocumentTitle, &dom,
		); err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "chunks.list", err)
		}
		chunk.ID = strconv.FormatInt(rowID, 10)
		chunk.DocumentDomain = domain.Domain(dom)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "chunks.list", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "chunks.delete",
			fmt.Errorf("document %s: %w", documentID, err))
	}
	return nil
}
