package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkSize != 1000 {
		t.Fatalf("expected default chunk_size=1000, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Fatalf("expected default chunk_overlap=200, got %d", cfg.ChunkOverlap)
	}
	if cfg.TopK != 10 {
		t.Fatalf("expected default top_k=10, got %d", cfg.TopK)
	}
	if cfg.SimilarityThreshold != 0.7 {
		t.Fatalf("expected default similarity_threshold=0.7, got %g", cfg.SimilarityThreshold)
	}
	if cfg.EmbeddingsEnabled {
		t.Fatalf("expected embeddings disabled by default")
	}
}

func TestLoadRejectsDegenerateChunking(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "200")
	t.Setenv("CHUNK_OVERLAP", "200")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for chunk_overlap >= chunk_size")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("chunk_size: 500\ntop_k: 3\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DOCQUERY_CONFIG", path)
	t.Setenv("CHUNK_SIZE", "800")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkSize != 800 {
		t.Fatalf("expected env override chunk_size=800, got %d", cfg.ChunkSize)
	}
	if cfg.TopK != 3 {
		t.Fatalf("expected file top_k=3, got %d", cfg.TopK)
	}
}

func TestValidateSimilarityThresholdRange(t *testing.T) {
	cfg := defaults()
	cfg.SimilarityThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for similarity_threshold out of range")
	}
}
