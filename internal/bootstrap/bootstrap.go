package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/querylab/docquery/internal/config"
	"github.com/querylab/docquery/internal/core/ports"
	"github.com/querylab/docquery/internal/core/usecase"
	"github.com/querylab/docquery/internal/infrastructure/chunking"
	"github.com/querylab/docquery/internal/infrastructure/classify"
	"github.com/querylab/docquery/internal/infrastructure/extractor"
	emailextractor "github.com/querylab/docquery/internal/infrastructure/extractor/email"
	pdfextractor "github.com/querylab/docquery/internal/infrastructure/extractor/pdf"
	"github.com/querylab/docquery/internal/infrastructure/extractor/plaintext"
	xlsxextractor "github.com/querylab/docquery/internal/infrastructure/extractor/xlsx"
	"github.com/querylab/docquery/internal/infrastructure/lexical"
	"github.com/querylab/docquery/internal/infrastructure/llm/openai"
	natsqueue "github.com/querylab/docquery/internal/infrastructure/queue/nats"
	"github.com/querylab/docquery/internal/infrastructure/repository/postgres"
	"github.com/querylab/docquery/internal/infrastructure/resilience"
	"github.com/querylab/docquery/internal/infrastructure/storage/localfs"
	"github.com/querylab/docquery/internal/infrastructure/vector/qdrant"
	"github.com/querylab/docquery/internal/infrastructure/websearch"
	"github.com/querylab/docquery/internal/observability/logging"
	"github.com/querylab/docquery/internal/observability/metrics"
)

// App holds the wired object graph shared by the api and worker
// binaries. Construction is explicit; there is no DI container.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	History   ports.QueryStore

	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QueryService

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	// Each flaky backend gets its own executor so an open breaker on
	// the embedding API never throttles queue publishes or searches.
	transportExec := resilience.NewExecutor(resilience.DefaultConfig())
	embeddingExec := resilience.NewExecutor(resilience.EmbeddingPolicy())
	searchExec := resilience.NewExecutor(resilience.SearchPolicy())

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	documents := postgres.NewDocumentRepository(db)
	chunks := postgres.NewChunkRepository(db)
	history := postgres.NewQueryRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := natsqueue.New(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: transportExec,
		Logger:             logging.ForComponent(logger, "queue"),
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection).WithExecutor(searchExec)
	classifier := classify.New()
	splitter := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	lexicalSearch := lexical.NewSearcher(chunks, logging.ForComponent(logger, "lexical"), lexical.Options{
		PhraseBonus:     cfg.LexicalPhraseBonus,
		ProximityWindow: cfg.LexicalProximityWindow,
	})

	generator := openai.NewGenerator(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.LLMTimeout,
	})

	var embedder ports.Embedder
	if cfg.EmbeddingsEnabled {
		embedder = openai.NewEmbedder(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbedModel,
			Timeout: cfg.EmbedTimeout,
		}).WithExecutor(embeddingExec)
	}

	extractLog := logging.ForComponent(logger, "extract")
	plainText := plaintext.NewExtractor(storage)
	dispatcher := extractor.NewDispatcher(map[string]ports.TextExtractor{
		".txt":  plainText,
		".md":   plainText,
		".pdf":  pdfextractor.NewExtractor(storage, extractLog),
		".xlsx": xlsxextractor.NewExtractor(storage, extractLog),
		".eml":  emailextractor.NewExtractor(storage),
	})

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	workerMetrics := metrics.NewWorkerMetrics(service)

	retriever := usecase.NewHybridRetriever(embedder, vectorDB, lexicalSearch, logger, usecase.HybridConfig{
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
		VectorTimeout:       cfg.VectorTimeout,
		EmbeddingsEnabled:   cfg.EmbeddingsEnabled,
		OnVectorHit:         func(n int) { httpMetrics.ObserveVectorHits(service, n) },
		OnLexicalFallback:   func() { httpMetrics.RecordLexicalFallback(service) },
	})

	var webSearcher ports.WebSearcher
	if cfg.WebSearchEnabled {
		webSearcher = websearch.New("")
	}

	ingestUC := usecase.NewIngestUsecase(
		documents, chunks, storage, queue, vectorDB, logger, int(cfg.MaxFileSizeMB),
	)
	processUC := usecase.NewProcessUsecase(usecase.ProcessDeps{
		Documents:  documents,
		Chunks:     chunks,
		Extractor:  dispatcher,
		Classifier: classifier,
		Splitter:   splitter,
		Embedder:   embedder,
		Index:      vectorDB,
		Logger:     logger,
		Metrics:    workerMetrics.ProcessObserver(service),

		EmbeddingsEnabled: cfg.EmbeddingsEnabled,
		EmbedTimeout:      cfg.EmbedTimeout,
	})
	queryUC := usecase.NewQueryUsecase(usecase.QueryDeps{
		Retriever:  retriever,
		Reranker:   usecase.NewReranker(),
		Classifier: classifier,
		Generator:  generator,
		WebSearch:  webSearcher,
		Queries:    history,
		Logger:     logger,
		Metrics:    httpMetrics.QueryObserver(service),

		WebSearchEnabled: cfg.WebSearchEnabled,
	})

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Documents: documents,
		History:   history,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		HTTPMetrics:   httpMetrics,
		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
