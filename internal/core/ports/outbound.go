package ports

import (
	"context"
	"io"

	"github.com/querylab/docquery/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByHash(ctx context.Context, hash string) (*domain.Document, error)
	List(ctx context.Context, dom domain.Domain, limit, offset int) ([]domain.Document, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveExtraction(ctx context.Context, id string, title, author string, dom domain.Domain) error
	Delete(ctx context.Context, id string) error
}

// ChunkStore persists chunk rows and serves the lexical-search read
// contract: completed-document chunks joined with title and domain.
type ChunkStore interface {
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	SetVectorIDs(ctx context.Context, documentID string, vectorIDs []string) error
	ListChunks(ctx context.Context, filter domain.SearchFilter) ([]domain.StoredChunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// QueryStore persists query history.
type QueryStore interface {
	Save(ctx context.Context, record *domain.QueryRecord) error
	GetByID(ctx context.Context, id string) (*domain.QueryRecord, error)
	List(ctx context.Context, documentID string, dom domain.Domain, limit, offset int) ([]domain.QueryRecord, int, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes document processing events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text and format metadata from a stored
// document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error)
}

// DomainClassifier assigns a knowledge domain to document text or to a
// short query. The two operations score differently on purpose:
// documents are classified by distinct-keyword containment, queries by
// pattern occurrence counts.
type DomainClassifier interface {
	ClassifyDocument(text, titleHint string) domain.Domain
	ClassifyQuery(query string) domain.Domain
}

// Embedder builds vectors for chunks and query text. May be absent
// when embeddings are feature-flagged off.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the ANN backend strategy. Score semantics are cosine
// similarity; callers apply the similarity threshold.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32, dom domain.Domain) ([]string, error)
	Query(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.SearchCandidate, error)
	Delete(ctx context.Context, filter domain.SearchFilter) error
}

// LexicalSearcher scans the chunk store for term matches when the
// vector path is unavailable or short.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, filter domain.SearchFilter, maxResults int) ([]domain.SearchCandidate, error)
}

// AnswerGenerator produces the structured answer for ranked evidence.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, query string, result *domain.QueryResult, webContext string) (*domain.Answer, error)
}

// WebSearcher is the last-resort context source when retrieval finds
// nothing usable.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}
