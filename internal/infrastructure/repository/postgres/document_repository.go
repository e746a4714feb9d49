package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/querylab/docquery/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, filename, mime_type, storage_path, file_size, file_hash, title, author, domain, status, error_message, created_at, updated_at, processed_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, mime_type, storage_path, file_size, file_hash, title, author, domain, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		doc.ID, doc.Filename, doc.MimeType, doc.StoragePath, doc.FileSize, doc.FileHash,
		doc.Title, doc.Author, string(doc.Domain), string(doc.Status), doc.Error,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "documents.create", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row, "documents.get", id)
}

func (r *DocumentRepository) GetByHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE file_hash = $1`, hash)
	return scanDocument(row, "documents.get_by_hash", hash)
}

func (r *DocumentRepository) List(ctx context.Context, dom domain.Domain, limit, offset int) ([]domain.Document, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	countRow := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE ($1 = '' OR domain = $1)`, string(dom))
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "documents.list", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE ($1 = '' OR domain = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, string(dom), limit, offset)
	if err != nil {
		return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "documents.list", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "documents.list", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.WrapError(domain.ErrBackendUnavailable, "documents.list", err)
	}
	return docs, total, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	var processedAt any
	if status == domain.StatusCompleted {
		processedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4, processed_at = COALESCE($5, processed_at)
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC(), processedAt)
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "documents.update_status", err)
	}
	return requireRowAffected(res, "documents.update_status", id)
}

func (r *DocumentRepository) SaveExtraction(ctx context.Context, id string, title, author string, dom domain.Domain) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET title = $2, author = $3, domain = $4, updated_at = $5
WHERE id = $1
`, id, title, author, string(dom), time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "documents.save_extraction", err)
	}
	return requireRowAffected(res, "documents.save_extraction", id)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "documents.delete", err)
	}
	return requireRowAffected(res, "documents.delete", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, op, key string) (*domain.Document, error) {
	doc, err := scanDocumentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("document %s", key))
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, op, err)
	}
	return doc, nil
}

func scanDocumentRow(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var dom, status string
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.MimeType, &doc.StoragePath, &doc.FileSize, &doc.FileHash,
		&doc.Title, &doc.Author, &dom, &status, &doc.Error,
		&doc.CreatedAt, &doc.UpdatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Domain = domain.Domain(dom)
	doc.Status = domain.DocumentStatus(status)
	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}
	return &doc, nil
}

func requireRowAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("document %s", id))
	}
	return nil
}
