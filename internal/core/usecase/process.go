package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
	"github.com/querylab/docquery/internal/infrastructure/chunking"
)

// ProcessMetrics receives worker pipeline outcomes.
type ProcessMetrics interface {
	ObserveProcess(status domain.DocumentStatus, elapsed time.Duration)
}

// ProcessUsecase turns an uploaded document into retrievable chunks:
// extract text, classify its domain, split, persist chunk rows, and
// index vectors when embeddings are on. Vector indexing failures do
// not fail processing; lexical search still serves the document.
type ProcessUsecase struct {
	documents ports.DocumentRepository
	chunks    ports.ChunkStore
	extractor ports.TextExtractor

	classifier ports.DomainClassifier
	splitter   *chunking.Splitter
	embedder   ports.Embedder
	index      ports.VectorIndex

	logger  *slog.Logger
	metrics ProcessMetrics

	embeddingsEnabled bool
	embedTimeout      time.Duration
}

type ProcessDeps struct {
	Documents  ports.DocumentRepository
	Chunks     ports.ChunkStore
	Extractor  ports.TextExtractor
	Classifier ports.DomainClassifier
	Splitter   *chunking.Splitter
	Embedder   ports.Embedder
	Index      ports.VectorIndex
	Logger     *slog.Logger
	Metrics    ProcessMetrics

	EmbeddingsEnabled bool
	EmbedTimeout      time.Duration
}

func NewProcessUsecase(deps ProcessDeps) *ProcessUsecase {
	if deps.EmbedTimeout <= 0 {
		deps.EmbedTimeout = 30 * time.Second
	}
	return &ProcessUsecase{
		documents:         deps.Documents,
		chunks:            deps.Chunks,
		extractor:         deps.Extractor,
		classifier:        deps.Classifier,
		splitter:          deps.Splitter,
		embedder:          deps.Embedder,
		index:             deps.Index,
		logger:            deps.Logger,
		metrics:           deps.Metrics,
		embeddingsEnabled: deps.EmbeddingsEnabled,
		embedTimeout:      deps.EmbedTimeout,
	}
}

func (u *ProcessUsecase) ProcessByID(ctx context.Context, documentID string) error {
	started := time.Now()

	doc, err := u.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == domain.StatusCompleted {
		u.logger.Info("document already processed, skipping", "document_id", doc.ID)
		return nil
	}

	if err := u.documents.UpdateStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "process.status", err)
	}

	if err := u.run(ctx, doc); err != nil {
		if statusErr := u.documents.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); statusErr != nil {
			u.logger.Error("failed document could not be marked failed",
				"document_id", doc.ID, "error", statusErr)
		}
		u.observe(domain.StatusFailed, started)
		return err
	}

	if err := u.documents.UpdateStatus(ctx, doc.ID, domain.StatusCompleted, ""); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "process.status", err)
	}
	u.observe(domain.StatusCompleted, started)
	u.logger.Info("document processed",
		"document_id", doc.ID,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

func (u *ProcessUsecase) run(ctx context.Context, doc *domain.Document) error {
	extracted, err := u.extractor.Extract(ctx, doc)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "process.extract", err)
	}
	if extracted.Text == "" {
		return domain.WrapError(domain.ErrInvalidInput, "process.extract", errors.New("no text extracted"))
	}

	title := extracted.Title
	if title == "" {
		title = doc.Filename
	}
	dom := u.classifier.ClassifyDocument(extracted.Text, title)

	if err := u.documents.SaveExtraction(ctx, doc.ID, title, extracted.Author, dom); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "process.extract", err)
	}
	doc.Title = title
	doc.Domain = dom

	chunks := u.splitter.Split(extracted.Text)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "process.chunk", errors.New("document produced no chunks"))
	}
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}
	if err := u.chunks.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "process.chunk", err)
	}

	u.indexVectors(ctx, doc, chunks)
	return nil
}

// indexVectors embeds and upserts the chunks, then backfills the
// assigned vector ids onto the chunk rows. Best effort throughout.
func (u *ProcessUsecase) indexVectors(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) {
	if !u.embeddingsEnabled || u.embedder == nil || u.index == nil {
		return
	}

	ectx, cancel := context.WithTimeout(ctx, u.embedTimeout)
	defer cancel()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := u.embedder.Embed(ectx, texts)
	if err != nil {
		u.logger.Warn("chunk embedding failed, document stays lexical-only",
			"document_id", doc.ID, "error", err)
		return
	}

	vectorIDs, err := u.index.Upsert(ectx, chunks, vectors, doc.Domain)
	if err != nil {
		u.logger.Warn("vector upsert failed, document stays lexical-only",
			"document_id", doc.ID, "error", err)
		return
	}
	if err := u.chunks.SetVectorIDs(ctx, doc.ID, vectorIDs); err != nil {
		u.logger.Warn("vector id backfill failed", "document_id", doc.ID, "error", err)
	}
}

func (u *ProcessUsecase) observe(status domain.DocumentStatus, started time.Time) {
	if u.metrics != nil {
		u.metrics.ObserveProcess(status, time.Since(started))
	}
}
