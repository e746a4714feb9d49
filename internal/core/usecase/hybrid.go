package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

// HybridRetriever fuses vector and lexical search. Vector search is
// best effort: an unreachable index or disabled embeddings degrades to
// lexical-only retrieval instead of failing the query.
type HybridRetriever struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	lexical  ports.LexicalSearcher
	logger   *slog.Logger

	topK                int
	similarityThreshold float64
	vectorTimeout       time.Duration
	embeddingsEnabled   bool

	onVectorHit       func(n int)
	onLexicalFallback func()
}

type HybridConfig struct {
	TopK                int
	SimilarityThreshold float64
	VectorTimeout       time.Duration
	EmbeddingsEnabled   bool

	// Optional metric hooks, nil-safe.
	OnVectorHit       func(n int)
	OnLexicalFallback func()
}

func NewHybridRetriever(
	embedder ports.Embedder,
	index ports.VectorIndex,
	lexical ports.LexicalSearcher,
	logger *slog.Logger,
	cfg HybridConfig,
) *HybridRetriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.VectorTimeout <= 0 {
		cfg.VectorTimeout = 5 * time.Second
	}
	return &HybridRetriever{
		embedder:            embedder,
		index:               index,
		lexical:             lexical,
		logger:              logger,
		topK:                cfg.TopK,
		similarityThreshold: cfg.SimilarityThreshold,
		vectorTimeout:       cfg.VectorTimeout,
		embeddingsEnabled:   cfg.EmbeddingsEnabled,
		onVectorHit:         cfg.OnVectorHit,
		onLexicalFallback:   cfg.OnLexicalFallback,
	}
}

// Retrieve runs vector search first, keeps hits at or above the
// similarity threshold, then fills the remaining top-k slots from
// lexical search. Duplicates are dropped with vector results taking
// priority; a lexical hit for a chunk the vector index already
// returned never displaces it.
func (h *HybridRetriever) Retrieve(ctx context.Context, query string, filter domain.SearchFilter) ([]domain.SearchCandidate, error) {
	vector := h.vectorCandidates(ctx, query, filter)

	shortfall := h.topK - len(vector)
	if shortfall <= 0 {
		return vector[:h.topK], nil
	}

	if h.onLexicalFallback != nil && len(vector) == 0 {
		h.onLexicalFallback()
	}

	lexical, err := h.lexical.Search(ctx, query, filter, shortfall)
	if err != nil {
		if len(vector) > 0 {
			h.logger.Warn("lexical search failed, serving vector results only", "error", err)
			return vector, nil
		}
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	merged := vector
	seen := make(map[string]struct{}, len(vector))
	seenChunks := make(map[chunkKey]struct{}, len(vector))
	for _, c := range vector {
		seen[c.ID] = struct{}{}
		seenChunks[keyOf(c)] = struct{}{}
	}
	for _, c := range lexical {
		if len(merged) >= h.topK {
			break
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if _, dup := seenChunks[keyOf(c)]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		seenChunks[keyOf(c)] = struct{}{}
		merged = append(merged, c)
	}
	return merged, nil
}

type chunkKey struct {
	documentID string
	chunkIndex int
}

// keyOf identifies a chunk independently of which backend returned
// it. Vector ids and lexical ids differ for the same chunk, so id
// dedupe alone is not enough.
func keyOf(c domain.SearchCandidate) chunkKey {
	return chunkKey{documentID: c.Metadata.DocumentID, chunkIndex: c.Metadata.ChunkIndex}
}

// vectorCandidates embeds the query and searches the index. Every
// failure path returns nil so the caller falls through to lexical.
func (h *HybridRetriever) vectorCandidates(ctx context.Context, query string, filter domain.SearchFilter) []domain.SearchCandidate {
	if !h.embeddingsEnabled || h.embedder == nil || h.index == nil {
		return nil
	}

	vctx, cancel := context.WithTimeout(ctx, h.vectorTimeout)
	defer cancel()

	vector, err := h.embedder.EmbedQuery(vctx, query)
	if err != nil {
		h.logger.Warn("query embedding failed, falling back to lexical", "error", err)
		return nil
	}

	hits, err := h.index.Query(vctx, vector, h.topK, filter)
	if err != nil {
		h.logger.Warn("vector search failed, falling back to lexical", "error", err)
		return nil
	}

	kept := hits[:0]
	for _, c := range hits {
		if c.Score >= h.similarityThreshold {
			c.AdjustedScore = c.Score
			kept = append(kept, c)
		}
	}
	if h.onVectorHit != nil {
		h.onVectorHit(len(kept))
	}
	return kept
}
