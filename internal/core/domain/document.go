package domain

import "time"

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	FileSize    int64          `json:"file_size"`
	FileHash    string         `json:"file_hash,omitempty"`
	Title       string         `json:"title,omitempty"`
	Author      string         `json:"author,omitempty"`
	Domain      Domain         `json:"domain,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
}

// ExtractedText is the output of a text extractor: the plain text plus
// whatever format-level metadata was available.
type ExtractedText struct {
	Text   string
	Title  string
	Author string
}

// Chunk is a contiguous slice of a document's normalized text, the
// unit of retrieval. Chunks of one document tile the normalized text
// with overlap; StartChar/EndChar are offsets into that text.
type Chunk struct {
	ID         string `json:"id,omitempty"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	VectorID   string `json:"vector_id,omitempty"`
}

// StoredChunk is a chunk row joined with its parent document metadata,
// as returned by the chunk store read contract.
type StoredChunk struct {
	Chunk
	DocumentTitle  string `json:"document_title"`
	DocumentDomain Domain `json:"document_domain"`
}
