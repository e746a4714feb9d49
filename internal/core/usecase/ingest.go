package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".txt":  {},
	".md":   {},
	".xlsx": {},
	".eml":  {},
}

// IngestUsecase handles the upload lifecycle: validate, dedupe by
// content hash, persist the source file, record the document, and
// hand off processing to the queue.
type IngestUsecase struct {
	documents ports.DocumentRepository
	chunks    ports.ChunkStore
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	index     ports.VectorIndex
	logger    *slog.Logger

	maxFileSize int64
}

func NewIngestUsecase(
	documents ports.DocumentRepository,
	chunks ports.ChunkStore,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	index ports.VectorIndex,
	logger *slog.Logger,
	maxFileSizeMB int,
) *IngestUsecase {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 50
	}
	return &IngestUsecase{
		documents:   documents,
		chunks:      chunks,
		storage:     storage,
		queue:       queue,
		index:       index,
		logger:      logger,
		maxFileSize: int64(maxFileSizeMB) << 20,
	}
}

// Upload stores the document and enqueues it for processing. A file
// whose content hash already exists returns the existing document
// unchanged instead of creating a duplicate.
func (u *IngestUsecase) Upload(ctx context.Context, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest.upload", errors.New("filename is empty"))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest.upload",
			fmt.Errorf("unsupported file type %q", ext))
	}
	if size > u.maxFileSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest.upload",
			fmt.Errorf("file size %d exceeds limit %d", size, u.maxFileSize))
	}

	// Hash while buffering. Uploads are size-capped, so holding the
	// payload in memory is acceptable.
	var buf bytes.Buffer
	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(&buf, hasher), io.LimitReader(body, u.maxFileSize+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest.upload", err)
	}
	if n > u.maxFileSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest.upload",
			fmt.Errorf("file exceeds limit %d", u.maxFileSize))
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	if existing, err := u.documents.GetByHash(ctx, hash); err == nil && existing != nil {
		u.logger.Info("duplicate upload, returning existing document",
			"document_id", existing.ID, "hash", hash)
		return existing, nil
	} else if err != nil && !domain.IsKind(err, domain.ErrDocumentNotFound) {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "ingest.upload", err)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s%s", id, ext)
	if err := u.storage.Save(ctx, storageKey, &buf); err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "ingest.upload", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		FileSize:    n,
		FileHash:    hash,
		Domain:      domain.DomainGeneral,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.documents.Create(ctx, doc); err != nil {
		if cleanupErr := u.storage.Delete(ctx, storageKey); cleanupErr != nil {
			u.logger.Warn("orphaned upload cleanup failed", "key", storageKey, "error", cleanupErr)
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "ingest.upload", err)
	}

	if err := u.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		// The document row survives; a requeue sweep or manual retry
		// can pick it up later.
		u.logger.Error("document ingested but publish failed",
			"document_id", doc.ID, "error", err)
	}

	u.logger.Info("document uploaded",
		"document_id", doc.ID, "filename", filename, "size", n)
	return doc, nil
}

// Delete removes the document and everything derived from it: vectors,
// chunk rows, the stored file, and finally the document row.
func (u *IngestUsecase) Delete(ctx context.Context, documentID string) error {
	doc, err := u.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if u.index != nil {
		if err := u.index.Delete(ctx, domain.SearchFilter{DocumentID: doc.ID}); err != nil {
			u.logger.Warn("vector cleanup failed", "document_id", doc.ID, "error", err)
		}
	}
	if err := u.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "ingest.delete", err)
	}
	if err := u.storage.Delete(ctx, doc.StoragePath); err != nil {
		u.logger.Warn("stored file cleanup failed", "document_id", doc.ID, "error", err)
	}
	if err := u.documents.Delete(ctx, doc.ID); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "ingest.delete", err)
	}

	u.logger.Info("document deleted", "document_id", doc.ID)
	return nil
}
