package chunking

import (
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
)

// Splitter cuts normalized document text into overlapping,
// sentence-aware chunks with character offsets. Construct it with
// NewSplitter; the fields stay unexported so overlap < chunkSize
// always holds inside Split.
type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Split normalizes whitespace and walks the text with a sliding
// window. Window ends snap back to the last sentence-terminating
// period, but only when that keeps the chunk longer than half the
// window; otherwise the fixed-size cut stands. The advance
// start = max(start+size-overlap, end) guarantees forward progress
// even when the boundary snap moved end before the overlap point.
func (s *Splitter) Split(text string) []domain.Chunk {
	text = normalizeWhitespace(text)
	if text == "" {
		return nil
	}

	if len(text) <= s.chunkSize {
		return []domain.Chunk{{
			Content:    text,
			ChunkIndex: 0,
			StartChar:  0,
			EndChar:    len(text),
		}}
	}

	chunks := make([]domain.Chunk, 0, len(text)/(s.chunkSize-s.overlap)+1)
	start := 0
	index := 0

	for start < len(text) {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			if cut := strings.LastIndexByte(text[start:end], '.'); cut >= 0 {
				sentenceEnd := start + cut
				if sentenceEnd > start+s.chunkSize/2 {
					end = sentenceEnd + 1
				}
			}
		}

		if content := strings.TrimSpace(text[start:end]); content != "" {
			chunks = append(chunks, domain.Chunk{
				Content:    content,
				ChunkIndex: index,
				StartChar:  start,
				EndChar:    end,
			})
			index++
		}

		next := start + s.chunkSize - s.overlap
		if next < end {
			next = end
		}
		start = next
	}

	return chunks
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
