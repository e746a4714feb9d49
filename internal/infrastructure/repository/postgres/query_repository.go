package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/querylab/docquery/internal/core/domain"
)

type QueryRepository struct {
	db *sql.DB
}

func NewQueryRepository(db *sql.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

func (r *QueryRepository) Save(ctx context.Context, record *domain.QueryRecord) error {
	chunksJSON, err := json.Marshal(record.RetrievedChunks)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "queries.save", err)
	}

	var documentID any
	if record.DocumentID != "" {
		documentID = record.DocumentID
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO queries (
	id, document_id, query_text, domain, answer, reasoning, confidence, processing_time_ms, retrieved_chunks, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		record.ID, documentID, record.QueryText, string(record.Domain),
		record.Answer, record.Reasoning, record.Confidence, record.ProcessingTimeMS,
		chunksJSON, record.CreatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "queries.save", err)
	}
	return nil
}

const queryColumns = `id, COALESCE(document_id, ''), query_text, domain, answer, reasoning, confidence, processing_time_ms, retrieved_chunks, created_at`

func (r *QueryRepository) GetByID(ctx context.Context, id string) (*domain.QueryRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+queryColumns+` FROM queries WHERE id = $1`, id)

	record, err := scanQueryRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrQueryNotFound, "queries.get", fmt.Errorf("query %s", id))
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "queries.get", err)
	}
	return record, nil
}

func (r *QueryRepository) List(ctx context.Context, documentID string, dom domain.Domain, limit, offset int) ([]domain.QueryRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	countRow := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM queries
WHERE ($1 = '' OR document_id = $1) AND ($2 = '' OR domain = $2)
`, documentID, string(dom))
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "queries.list", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+queryColumns+`
FROM queries
WHERE ($1 = '' OR document_id = $1) AND ($2 = '' OR domain = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`, documentID, string(dom), limit, offset)
	if err != nil {
		return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "queries.list", err)
	}
	defer rows.Close()

	var records []domain.QueryRecord
	for rows.Next() {
		record, err := scanQueryRecord(rows)
		if err != nil {
			return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "queries.list", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "queries.list", err)
	}
	return records, total, nil
}

func scanQueryRecord(row rowScanner) (*domain.QueryRecord, error) {
	var record domain.QueryRecord
	var dom string
	var chunksRaw []byte

	err := row.Scan(
		&record.ID, &record.DocumentID, &record.QueryText, &dom,
		&record.Answer, &record.Reasoning, &record.Confidence,
		&record.ProcessingTimeMS, &chunksRaw, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Domain = domain.Domain(dom)
	if len(chunksRaw) > 0 {
		if err := json.Unmarshal(chunksRaw, &record.RetrievedChunks); err != nil {
			return nil, fmt.Errorf("unmarshal retrieved chunks: %w", err)
		}
	}
	return &record, nil
}
