package ports

import (
	"context"
	"io"

	"github.com/querylab/docquery/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload
// orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error)
	Delete(ctx context.Context, documentID string) error
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// QueryService runs the full retrieval and answer pipeline.
type QueryService interface {
	Process(ctx context.Context, query string, documentID string, domainHint domain.Domain) (*QueryOutcome, error)
}

// QueryOutcome bundles the retrieval result, the generated answer and
// the derived confidence for one query invocation.
type QueryOutcome struct {
	Result     *domain.QueryResult `json:"result"`
	Answer     *domain.Answer      `json:"answer"`
	Confidence float64             `json:"confidence_score"`
	QueryID    string              `json:"query_id,omitempty"`
}
