package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
	"github.com/querylab/docquery/internal/infrastructure/classify"
)

var errEmptyQuery = errors.New("query text is empty")

// QueryMetrics receives the pipeline's observable outcomes. All
// methods are called exactly once per processed query.
type QueryMetrics interface {
	ObserveQuery(dom domain.Domain, confidence float64, elapsed time.Duration)
}

// QueryUsecase runs the full ask pipeline: classify, expand, retrieve,
// rerank, generate, score. Web search and history persistence are best
// effort and never fail the request.
type QueryUsecase struct {
	retriever *HybridRetriever
	reranker  *Reranker

	classifier ports.DomainClassifier
	generator  ports.AnswerGenerator
	webSearch  ports.WebSearcher
	queries    ports.QueryStore

	logger  *slog.Logger
	metrics QueryMetrics

	webSearchEnabled bool
}

type QueryDeps struct {
	Retriever  *HybridRetriever
	Reranker   *Reranker
	Classifier ports.DomainClassifier
	Generator  ports.AnswerGenerator
	WebSearch  ports.WebSearcher
	Queries    ports.QueryStore
	Logger     *slog.Logger
	Metrics    QueryMetrics

	WebSearchEnabled bool
}

func NewQueryUsecase(deps QueryDeps) *QueryUsecase {
	return &QueryUsecase{
		retriever:        deps.Retriever,
		reranker:         deps.Reranker,
		classifier:       deps.Classifier,
		generator:        deps.Generator,
		webSearch:        deps.WebSearch,
		queries:          deps.Queries,
		logger:           deps.Logger,
		metrics:          deps.Metrics,
		webSearchEnabled: deps.WebSearchEnabled,
	}
}

func (u *QueryUsecase) Process(ctx context.Context, query string, documentID string, domainHint domain.Domain) (*ports.QueryOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "query.process", errEmptyQuery)
	}

	started := time.Now()

	dom := domainHint
	if !dom.Valid() {
		dom = u.classifier.ClassifyQuery(query)
	}
	enhanced := classify.ExpandQuery(query, dom)

	filter := domain.SearchFilter{DocumentID: documentID, Domain: dom}
	if dom == domain.DomainGeneral {
		// A general query searches the whole corpus; the domain
		// filter would hide every classified document.
		filter.Domain = ""
	}

	candidates, err := u.retriever.Retrieve(ctx, enhanced, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "query.retrieve", err)
	}

	ranked := u.reranker.Rerank(candidates, dom)

	result := &domain.QueryResult{
		Query:           query,
		EnhancedQuery:   enhanced,
		Domain:          dom,
		Candidates:      ranked,
		TotalCandidates: len(ranked),
	}

	webContext := ""
	if len(ranked) == 0 && u.webSearchEnabled && u.webSearch != nil {
		webContext, err = u.webSearch.Search(ctx, query)
		if err != nil {
			u.logger.Warn("web search fallback failed", "error", err)
			webContext = ""
		}
	}

	answer, err := u.generator.GenerateAnswer(ctx, query, result, webContext)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "query.generate", err)
	}

	confidence := ScoreConfidence(ranked, answer)

	elapsed := time.Since(started)
	result.ProcessingTime = elapsed
	result.ProcessingTimeMS = elapsed.Milliseconds()

	outcome := &ports.QueryOutcome{
		Result:     result,
		Answer:     answer,
		Confidence: confidence,
	}
	outcome.QueryID = u.saveHistory(ctx, documentID, result, answer, confidence)

	if u.metrics != nil {
		u.metrics.ObserveQuery(dom, confidence, elapsed)
	}
	u.logger.Info("query processed",
		"domain", dom,
		"candidates", len(ranked),
		"confidence", confidence,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return outcome, nil
}

// saveHistory persists the query record. Persistence failures are
// logged and swallowed: the caller already has the answer.
func (u *QueryUsecase) saveHistory(ctx context.Context, documentID string, result *domain.QueryResult, answer *domain.Answer, confidence float64) string {
	if u.queries == nil {
		return ""
	}

	refs := make([]domain.ChunkRef, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		refs = append(refs, domain.ChunkRef{VectorID: c.ID, Score: c.AdjustedScore})
	}

	record := &domain.QueryRecord{
		ID:               uuid.NewString(),
		DocumentID:       documentID,
		QueryText:        result.Query,
		Domain:           result.Domain,
		Answer:           answer.Text,
		Reasoning:        answer.Reasoning,
		Confidence:       confidence,
		ProcessingTimeMS: result.ProcessingTimeMS,
		RetrievedChunks:  refs,
		CreatedAt:        time.Now().UTC(),
	}
	if err := u.queries.Save(ctx, record); err != nil {
		u.logger.Warn("query history save failed", "error", err)
		return ""
	}
	return record.ID
}
