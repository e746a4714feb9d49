package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

type ingestFake struct {
	uploadErr error
	deleteErr error
	deleted   []string
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:        "doc-1",
		Filename:  filename,
		MimeType:  mimeType,
		FileSize:  size,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (f *ingestFake) Delete(_ context.Context, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, documentID)
	return nil
}

type queryServiceFake struct {
	err       error
	gotQuery  string
	gotDocID  string
	gotDomain domain.Domain
}

func (f *queryServiceFake) Process(_ context.Context, query, documentID string, domainHint domain.Domain) (*ports.QueryOutcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotQuery = query
	f.gotDocID = documentID
	f.gotDomain = domainHint
	return &ports.QueryOutcome{
		Result:     &domain.QueryResult{Query: query, Domain: domain.DomainLegal},
		Answer:     &domain.Answer{Text: "answer text"},
		Confidence: 0.82,
		QueryID:    "q-1",
	}, nil
}

type docRepoFake struct {
	getErr    error
	listErr   error
	docs      []domain.Document
	gotDomain domain.Domain
	gotLimit  int
	gotOffset int
}

func (f *docRepoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.Document{ID: id, Filename: "a.txt", Status: domain.StatusCompleted}, nil
}

func (f *docRepoFake) GetByHash(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrDocumentNotFound
}

func (f *docRepoFake) List(_ context.Context, dom domain.Domain, limit, offset int) ([]domain.Document, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	f.gotDomain = dom
	f.gotLimit = limit
	f.gotOffset = offset
	return f.docs, len(f.docs), nil
}

func (f *docRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (f *docRepoFake) SaveExtraction(context.Context, string, string, string, domain.Domain) error {
	return nil
}

func (f *docRepoFake) Delete(context.Context, string) error { return nil }

type historyFake struct {
	getErr  error
	records []domain.QueryRecord
}

func (f *historyFake) Save(context.Context, *domain.QueryRecord) error { return nil }

func (f *historyFake) GetByID(_ context.Context, id string) (*domain.QueryRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.QueryRecord{ID: id, QueryText: "stored"}, nil
}

func (f *historyFake) List(context.Context, string, domain.Domain, int, int) ([]domain.QueryRecord, int, error) {
	return f.records, len(f.records), nil
}

func newTestRouter(ingestor ports.DocumentIngestor, queries ports.QueryService, documents ports.DocumentRepository, history ports.QueryStore) http.Handler {
	return NewRouter(RouterConfig{
		Ingestor:  ingestor,
		Queries:   queries,
		Documents: documents,
		History:   history,
	}).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header on every response")
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "policy.txt")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("coverage terms")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" {
		t.Fatalf("expected document id doc-1, got %v", docResp["id"])
	}
	if docResp["filename"] != "policy.txt" {
		t.Fatalf("expected filename policy.txt, got %v", docResp["filename"])
	}
}

func TestUploadDocumentWithoutFileReturns400(t *testing.T) {
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewReader([]byte("not multipart")))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListDocumentsPassesFilters(t *testing.T) {
	repo := &docRepoFake{docs: []domain.Document{{ID: "doc-1"}, {ID: "doc-2"}}}
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, repo, &historyFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?domain=legal&limit=10&offset=20", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if repo.gotDomain != domain.DomainLegal {
		t.Fatalf("expected legal domain filter, got %q", repo.gotDomain)
	}
	if repo.gotLimit != 10 || repo.gotOffset != 20 {
		t.Fatalf("expected limit=10 offset=20, got %d/%d", repo.gotLimit, repo.gotOffset)
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["total"] != float64(2) {
		t.Fatalf("expected total 2, got %v", resp["total"])
	}
}

func TestListDocumentsRejectsUnknownDomain(t *testing.T) {
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?domain=finance", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown domain, got %d", res.Code)
	}
}

func TestGetDocumentNotFoundMapsTo404(t *testing.T) {
	repo := &docRepoFake{getErr: domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("no rows"))}
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, repo, &historyFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	ingestor := &ingestFake{}
	handler := newTestRouter(ingestor, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/documents/doc-1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(ingestor.deleted) != 1 || ingestor.deleted[0] != "doc-1" {
		t.Fatalf("expected delete of doc-1, got %v", ingestor.deleted)
	}
}

func TestRunQuerySuccess(t *testing.T) {
	svc := &queryServiceFake{}
	handler := newTestRouter(&ingestFake{}, svc, &docRepoFake{}, &historyFake{})

	payload, _ := json.Marshal(map[string]string{
		"query":       "what does section 5 require",
		"document_id": "doc-1",
		"domain":      "legal",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if svc.gotQuery != "what does section 5 require" {
		t.Fatalf("unexpected query passed through: %q", svc.gotQuery)
	}
	if svc.gotDocID != "doc-1" || svc.gotDomain != domain.DomainLegal {
		t.Fatalf("filters not passed through: %q %q", svc.gotDocID, svc.gotDomain)
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["confidence_score"] != 0.82 {
		t.Fatalf("expected confidence 0.82, got %v", resp["confidence_score"])
	}
}

func TestRunQueryEmptyBodyReturns400(t *testing.T) {
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	payload, _ := json.Marshal(map[string]string{"query": "   "})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestRunQueryBackendUnavailableMapsTo503(t *testing.T) {
	svc := &queryServiceFake{err: domain.WrapError(domain.ErrBackendUnavailable, "retrieve", errors.New("qdrant down"))}
	handler := newTestRouter(&ingestFake{}, svc, &docRepoFake{}, &historyFake{})

	payload, _ := json.Marshal(map[string]string{"query": "anything"})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestQueryHistoryEndpoints(t *testing.T) {
	history := &historyFake{records: []domain.QueryRecord{{ID: "q-1"}}}
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, history)

	req := httptest.NewRequest(http.MethodGet, "/v1/queries", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("list queries expected 200, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/queries/q-1", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("get query expected 200, got %d", res.Code)
	}

	history.getErr = domain.WrapError(domain.ErrQueryNotFound, "get query", errors.New("no rows"))
	req = httptest.NewRequest(http.MethodGet, "/v1/queries/missing", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("missing query expected 404, got %d", res.Code)
	}
}

func TestListDomains(t *testing.T) {
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/domains", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp struct {
		Domains []string `json:"domains"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Domains) != 5 || resp.Domains[0] != "insurance" || resp.Domains[4] != "general" {
		t.Fatalf("unexpected domain list: %v", resp.Domains)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&ingestFake{}, &queryServiceFake{}, &docRepoFake{}, &historyFake{})

	req := httptest.NewRequest(http.MethodPut, "/v1/documents", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
