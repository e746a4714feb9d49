package domain

import "time"

// CandidateMetadata carries the chunk payload attached to a search
// candidate, independent of which backend produced it.
type CandidateMetadata struct {
	DocumentID    string `json:"document_id"`
	DocumentTitle string `json:"document_title,omitempty"`
	ChunkIndex    int    `json:"chunk_index"`
	Content       string `json:"content"`
	StartChar     int    `json:"start_char"`
	EndChar       int    `json:"end_char"`
}

// SearchCandidate is one retrieval hit. Score is the raw backend score
// (cosine similarity or lexical score); AdjustedScore starts equal to
// Score and absorbs the domain boost during re-ranking. Candidates are
// owned by the retrieval orchestrator for the lifetime of one query.
type SearchCandidate struct {
	ID            string            `json:"id"`
	Score         float64           `json:"score"`
	AdjustedScore float64           `json:"adjusted_score"`
	DomainScore   float64           `json:"domain_score"`
	Metadata      CandidateMetadata `json:"metadata"`
}

// SearchFilter scopes retrieval to a document and/or domain.
type SearchFilter struct {
	DocumentID string
	Domain     Domain
}

// QueryResult is the ranked candidate set produced for one query,
// immutable after return.
type QueryResult struct {
	Query            string            `json:"query"`
	EnhancedQuery    string            `json:"enhanced_query,omitempty"`
	Domain           Domain            `json:"domain"`
	Candidates       []SearchCandidate `json:"candidates"`
	TotalCandidates  int               `json:"total_candidates"`
	ProcessingTime   time.Duration     `json:"-"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
}

// Answer is the structured output of the answer generator.
type Answer struct {
	Text              string   `json:"answer"`
	Reasoning         string   `json:"reasoning"`
	Evidence          []string `json:"evidence"`
	Limitations       []string `json:"limitations"`
	FollowUpQuestions []string `json:"follow_up"`
	Model             string   `json:"model,omitempty"`
}

// QueryRecord is a persisted query with its final result, kept for the
// history endpoints.
type QueryRecord struct {
	ID               string     `json:"id"`
	DocumentID       string     `json:"document_id,omitempty"`
	QueryText        string     `json:"query_text"`
	Domain           Domain     `json:"domain"`
	Answer           string     `json:"answer"`
	Reasoning        string     `json:"reasoning,omitempty"`
	Confidence       float64    `json:"confidence_score"`
	ProcessingTimeMS int64      `json:"processing_time_ms"`
	RetrievedChunks  []ChunkRef `json:"retrieved_chunks,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ChunkRef references one candidate that backed a stored query.
type ChunkRef struct {
	VectorID string  `json:"vector_id"`
	Score    float64 `json:"score"`
}
