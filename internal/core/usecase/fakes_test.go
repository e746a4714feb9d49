package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/querylab/docquery/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEmbedder struct {
	vector  []float32
	vectors [][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{0.1, 0.2}, nil
}

type fakeVectorIndex struct {
	hits      []domain.SearchCandidate
	queryErr  error
	upsertIDs []string
	upsertErr error
	deleted   []domain.SearchFilter

	gotK      int
	gotFilter domain.SearchFilter
}

func (f *fakeVectorIndex) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32, dom domain.Domain) ([]string, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.upsertIDs != nil {
		return f.upsertIDs, nil
	}
	ids := make([]string, len(chunks))
	for i := range ids {
		ids[i] = "vec"
	}
	return ids, nil
}

func (f *fakeVectorIndex) Query(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.SearchCandidate, error) {
	f.gotK = k
	f.gotFilter = filter
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.hits, nil
}

func (f *fakeVectorIndex) Delete(ctx context.Context, filter domain.SearchFilter) error {
	f.deleted = append(f.deleted, filter)
	return nil
}

type fakeLexical struct {
	candidates []domain.SearchCandidate
	err        error

	gotQuery string
	gotMax   int
	calls    int
}

func (f *fakeLexical) Search(ctx context.Context, query string, filter domain.SearchFilter, maxResults int) ([]domain.SearchCandidate, error) {
	f.calls++
	f.gotQuery = query
	f.gotMax = maxResults
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fakeClassifier struct {
	docDomain   domain.Domain
	queryDomain domain.Domain
	queryCalls  int
}

func (f *fakeClassifier) ClassifyDocument(text, titleHint string) domain.Domain {
	if f.docDomain == "" {
		return domain.DomainGeneral
	}
	return f.docDomain
}

func (f *fakeClassifier) ClassifyQuery(query string) domain.Domain {
	f.queryCalls++
	if f.queryDomain == "" {
		return domain.DomainGeneral
	}
	return f.queryDomain
}

type fakeGenerator struct {
	answer *domain.Answer
	err    error

	gotWebContext string
	gotResult     *domain.QueryResult
}

func (f *fakeGenerator) GenerateAnswer(ctx context.Context, query string, result *domain.QueryResult, webContext string) (*domain.Answer, error) {
	f.gotWebContext = webContext
	f.gotResult = result
	if f.err != nil {
		return nil, f.err
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &domain.Answer{Text: "generated answer"}, nil
}

type fakeWebSearcher struct {
	result string
	err    error
	calls  int
}

func (f *fakeWebSearcher) Search(ctx context.Context, query string) (string, error) {
	f.calls++
	return f.result, f.err
}

type fakeQueryStore struct {
	saved   []*domain.QueryRecord
	saveErr error
}

func (f *fakeQueryStore) Save(ctx context.Context, record *domain.QueryRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeQueryStore) GetByID(ctx context.Context, id string) (*domain.QueryRecord, error) {
	return nil, domain.ErrQueryNotFound
}

func (f *fakeQueryStore) List(ctx context.Context, documentID string, dom domain.Domain, limit, offset int) ([]domain.QueryRecord, int, error) {
	return nil, 0, nil
}

type fakeDocumentRepo struct {
	docs      map[string]*domain.Document
	byHash    map[string]*domain.Document
	createErr error

	statuses   []domain.DocumentStatus
	lastError  string
	extraction struct {
		title  string
		author string
		dom    domain.Domain
	}
}

func newFakeDocumentRepo(docs ...*domain.Document) *fakeDocumentRepo {
	r := &fakeDocumentRepo{
		docs:   make(map[string]*domain.Document),
		byHash: make(map[string]*domain.Document),
	}
	for _, d := range docs {
		r.docs[d.ID] = d
		if d.FileHash != "" {
			r.byHash[d.FileHash] = d
		}
	}
	return r
}

func (f *fakeDocumentRepo) Create(ctx context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.docs[doc.ID] = doc
	if doc.FileHash != "" {
		f.byHash[doc.FileHash] = doc
	}
	return nil
}

func (f *fakeDocumentRepo) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "fake.get", domain.ErrDocumentNotFound)
	}
	return doc, nil
}

func (f *fakeDocumentRepo) GetByHash(ctx context.Context, hash string) (*domain.Document, error) {
	doc, ok := f.byHash[hash]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "fake.hash", domain.ErrDocumentNotFound)
	}
	return doc, nil
}

func (f *fakeDocumentRepo) List(ctx context.Context, dom domain.Domain, limit, offset int) ([]domain.Document, int, error) {
	return nil, 0, nil
}

func (f *fakeDocumentRepo) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	f.lastError = errMessage
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

func (f *fakeDocumentRepo) SaveExtraction(ctx context.Context, id string, title, author string, dom domain.Domain) error {
	f.extraction.title = title
	f.extraction.author = author
	f.extraction.dom = dom
	return nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

type fakeChunkStore struct {
	saved     []domain.Chunk
	vectorIDs []string
	deleted   []string
	saveErr   error
}

func (f *fakeChunkStore) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, chunks...)
	return nil
}

func (f *fakeChunkStore) SetVectorIDs(ctx context.Context, documentID string, vectorIDs []string) error {
	f.vectorIDs = vectorIDs
	return nil
}

func (f *fakeChunkStore) ListChunks(ctx context.Context, filter domain.SearchFilter) ([]domain.StoredChunk, error) {
	return nil, nil
}

func (f *fakeChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

type fakeStorage struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (f *fakeStorage) Save(ctx context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = b
	return nil
}

func (f *fakeStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.saved[key]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentIngested(ctx context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	extracted domain.ExtractedText
	err       error
}

func (f *fakeExtractor) Extract(ctx context.Context, doc *domain.Document) (domain.ExtractedText, error) {
	if f.err != nil {
		return domain.ExtractedText{}, f.err
	}
	return f.extracted, nil
}

type recordedMetrics struct {
	queryDomain    domain.Domain
	confidence     float64
	queryObserved  int
	processStatus  domain.DocumentStatus
	processElapsed time.Duration
}

func (m *recordedMetrics) ObserveQuery(dom domain.Domain, confidence float64, elapsed time.Duration) {
	m.queryObserved++
	m.queryDomain = dom
	m.confidence = confidence
}

func (m *recordedMetrics) ObserveProcess(status domain.DocumentStatus, elapsed time.Duration) {
	m.processStatus = status
	m.processElapsed = elapsed
}
