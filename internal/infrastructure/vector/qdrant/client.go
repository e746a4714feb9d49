package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/infrastructure/resilience"
)

// idNamespace makes point ids deterministic: the same logical chunk id
// always maps to the same qdrant UUID, so re-indexing a document
// overwrites its points instead of duplicating them.
var idNamespace = uuid.MustParse("9a4e1b52-7c3d-4f6a-8e2b-d51f0c9a6e37")

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithExecutor retries transient transport failures and trips a
// per-operation circuit breaker when qdrant stays unreachable.
func (c *Client) WithExecutor(executor *resilience.Executor) *Client {
	c.executor = executor
	return c
}

// Upsert indexes the chunk vectors and returns the logical vector id
// assigned to each chunk, in input order.
func (c *Client) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32, dom domain.Domain) ([]string, error) {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil, nil
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return nil, err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	vectorIDs := make([]string, len(chunks))
	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		logicalID := fmt.Sprintf("doc_%s_chunk_%d", chunk.DocumentID, chunk.ChunkIndex)
		vectorIDs[i] = logicalID
		points = append(points, point{
			ID:     uuid.NewSHA1(idNamespace, []byte(logicalID)).String(),
			Vector: vectors[i],
			Payload: map[string]any{
				"vector_id":   logicalID,
				"document_id": chunk.DocumentID,
				"chunk_index": chunk.ChunkIndex,
				"content":     chunk.Content,
				"start_char":  chunk.StartChar,
				"end_char":    chunk.EndChar,
				"domain":      string(dom),
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return nil, fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return vectorIDs, nil
}

// Query searches the collection and maps hits back to candidates keyed
// by the logical vector id.
func (c *Client) Query(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.SearchCandidate, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if must := filterConditions(filter); len(must) > 0 {
		reqBody["filter"] = map[string]any{"must": must}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SearchCandidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.SearchCandidate{
			ID:            getStringPayload(r.Payload, "vector_id"),
			Score:         r.Score,
			AdjustedScore: r.Score,
			Metadata: domain.CandidateMetadata{
				DocumentID: getStringPayload(r.Payload, "document_id"),
				ChunkIndex: getIntPayload(r.Payload, "chunk_index"),
				Content:    getStringPayload(r.Payload, "content"),
				StartChar:  getIntPayload(r.Payload, "start_char"),
				EndChar:    getIntPayload(r.Payload, "end_char"),
			},
		})
	}
	return out, nil
}

// Delete removes every point matching the filter.
func (c *Client) Delete(ctx context.Context, filter domain.SearchFilter) error {
	must := filterConditions(filter)
	if len(must) == 0 {
		return fmt.Errorf("refusing unfiltered delete")
	}

	body, err := json.Marshal(map[string]any{
		"filter": map[string]any{"must": must},
	})
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("qdrant delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant delete status: %s", resp.Status)
	}
	return nil
}

func filterConditions(filter domain.SearchFilter) []map[string]any {
	var must []map[string]any
	if filter.DocumentID != "" {
		must = append(must, map[string]any{
			"key":   "document_id",
			"match": map[string]any{"value": filter.DocumentID},
		})
	}
	if filter.Domain != "" {
		must = append(must, map[string]any{
			"key":   "domain",
			"match": map[string]any{"value": string(filter.Domain)},
		})
	}
	return must
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	send := func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	}

	if c.executor == nil {
		return send(ctx)
	}

	var resp *http.Response
	err := c.executor.Execute(ctx, "qdrant."+method, func(ctx context.Context) error {
		var sendErr error
		resp, sendErr = send(ctx)
		return sendErr
	}, resilience.ClassifyTransport)
	return resp, err
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
