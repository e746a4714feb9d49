package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/querylab/docquery/internal/core/domain"
)

func vectorCandidate(id, docID string, chunkIndex int, score float64) domain.SearchCandidate {
	return domain.SearchCandidate{
		ID:    id,
		Score: score,
		Metadata: domain.CandidateMetadata{
			DocumentID: docID,
			ChunkIndex: chunkIndex,
		},
	}
}

func newRetriever(embedder *fakeEmbedder, index *fakeVectorIndex, lexical *fakeLexical, cfg HybridConfig) *HybridRetriever {
	return NewHybridRetriever(embedder, index, lexical, testLogger(), cfg)
}

func TestRetrieveVectorOnlyWhenFull(t *testing.T) {
	index := &fakeVectorIndex{}
	for i := 0; i < 5; i++ {
		index.hits = append(index.hits, vectorCandidate("v", "doc-1", i, 0.9))
	}
	lexical := &fakeLexical{}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 5, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d candidates, want 5", len(got))
	}
	if lexical.calls != 0 {
		t.Fatalf("lexical search invoked despite full vector result")
	}
}

func TestRetrieveFillsShortfallFromLexical(t *testing.T) {
	index := &fakeVectorIndex{hits: []domain.SearchCandidate{
		vectorCandidate("v1", "doc-1", 0, 0.9),
		vectorCandidate("v2", "doc-1", 1, 0.8),
	}}
	lexical := &fakeLexical{candidates: []domain.SearchCandidate{
		vectorCandidate("l1", "doc-2", 0, 6.0),
		vectorCandidate("l2", "doc-2", 1, 5.0),
		vectorCandidate("l3", "doc-2", 2, 4.0),
	}}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 4, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d candidates, want 4", len(got))
	}
	for i, want := range []string{"v1", "v2", "l1", "l2"} {
		if got[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestRetrieveRequestsExactShortfallFromLexical(t *testing.T) {
	index := &fakeVectorIndex{hits: []domain.SearchCandidate{
		vectorCandidate("v1", "doc-1", 0, 0.9),
		vectorCandidate("v2", "doc-1", 1, 0.85),
		vectorCandidate("v3", "doc-1", 2, 0.8),
	}}
	lexical := &fakeLexical{}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 10, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	if _, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{}); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if lexical.gotMax != 7 {
		t.Fatalf("lexical search asked for %d results, want shortfall 7", lexical.gotMax)
	}
}

func TestRetrieveDedupesSameChunkAcrossBackends(t *testing.T) {
	index := &fakeVectorIndex{hits: []domain.SearchCandidate{
		vectorCandidate("doc_1_chunk_0", "doc-1", 0, 0.9),
	}}
	// Lexical returns the same chunk under its row id plus a new one.
	lexical := &fakeLexical{candidates: []domain.SearchCandidate{
		vectorCandidate("chunk_42", "doc-1", 0, 8.0),
		vectorCandidate("chunk_43", "doc-1", 1, 7.0),
	}}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 5, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2 after dedupe", len(got))
	}
	if got[0].ID != "doc_1_chunk_0" || got[1].ID != "chunk_43" {
		t.Fatalf("unexpected merge order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestRetrieveAppliesSimilarityThreshold(t *testing.T) {
	index := &fakeVectorIndex{hits: []domain.SearchCandidate{
		vectorCandidate("high", "doc-1", 0, 0.85),
		vectorCandidate("low", "doc-1", 1, 0.55),
	}}
	lexical := &fakeLexical{}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 3, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, c := range got {
		if c.ID == "low" {
			t.Fatalf("below-threshold hit survived")
		}
	}
}

func TestRetrieveDegradesToLexicalOnVectorError(t *testing.T) {
	index := &fakeVectorIndex{queryErr: errors.New("qdrant unreachable")}
	lexical := &fakeLexical{candidates: []domain.SearchCandidate{
		vectorCandidate("l1", "doc-1", 0, 6.0),
	}}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 5, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Fatalf("expected lexical fallback result, got %+v", got)
	}
}

func TestRetrieveDegradesToLexicalOnEmbedError(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("openai down")}
	index := &fakeVectorIndex{hits: []domain.SearchCandidate{
		vectorCandidate("v1", "doc-1", 0, 0.9),
	}}
	lexical := &fakeLexical{candidates: []domain.SearchCandidate{
		vectorCandidate("l1", "doc-1", 1, 6.0),
	}}
	r := newRetriever(embedder, index, lexical, HybridConfig{
		TopK: 5, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Fatalf("expected lexical-only result, got %+v", got)
	}
}

func TestRetrieveSkipsVectorWhenEmbeddingsDisabled(t *testing.T) {
	embedder := &fakeEmbedder{}
	lexical := &fakeLexical{candidates: []domain.SearchCandidate{
		vectorCandidate("l1", "doc-1", 0, 6.0),
	}}
	r := newRetriever(embedder, &fakeVectorIndex{}, lexical, HybridConfig{
		TopK: 5, SimilarityThreshold: 0.7, EmbeddingsEnabled: false,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("embedder called with embeddings disabled")
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
}

func TestRetrieveErrorsWhenBothBackendsFail(t *testing.T) {
	index := &fakeVectorIndex{queryErr: errors.New("index down")}
	lexical := &fakeLexical{err: errors.New("db down")}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 5, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	if _, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{}); err == nil {
		t.Fatalf("expected error when both backends fail")
	}
}

func TestRetrieveKeepsVectorWhenLexicalFails(t *testing.T) {
	index := &fakeVectorIndex{hits: []domain.SearchCandidate{
		vectorCandidate("v1", "doc-1", 0, 0.9),
	}}
	lexical := &fakeLexical{err: errors.New("db down")}
	r := newRetriever(&fakeEmbedder{}, index, lexical, HybridConfig{
		TopK: 5, SimilarityThreshold: 0.7, EmbeddingsEnabled: true,
	})

	got, err := r.Retrieve(context.Background(), "query", domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "v1" {
		t.Fatalf("expected vector-only result, got %+v", got)
	}
}
