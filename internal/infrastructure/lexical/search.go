package lexical

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
	"github.com/querylab/docquery/internal/core/ports"
)

// Searcher scans completed-document chunks for term matches. It is the
// completeness fallback behind vector search, not a replacement for
// it.
type Searcher struct {
	store  ports.ChunkStore
	logger *slog.Logger

	// Scoring knobs. Defaults reproduce the tuned production values;
	// see Options.
	phraseBonus     float64
	termBonus       float64
	occurrenceBonus float64
	proximityBonus  float64
	proximityWindow int
	lengthPivot     float64
}

type Options struct {
	PhraseBonus     float64 // full-query substring hit, default 10.0
	ProximityWindow int     // max char distance for the pair bonus, default 100
}

func NewSearcher(store ports.ChunkStore, logger *slog.Logger, opts Options) *Searcher {
	if opts.PhraseBonus <= 0 {
		opts.PhraseBonus = 10.0
	}
	if opts.ProximityWindow <= 0 {
		opts.ProximityWindow = 100
	}
	return &Searcher{
		store:           store,
		logger:          logger,
		phraseBonus:     opts.PhraseBonus,
		termBonus:       2.0,
		occurrenceBonus: 0.5,
		proximityBonus:  1.0,
		proximityWindow: opts.ProximityWindow,
		lengthPivot:     1000.0,
	}
}

// Search scores every stored chunk under the filter and returns the
// top maxResults candidates by descending score. Chunks scoring zero
// are dropped.
func (s *Searcher) Search(ctx context.Context, query string, filter domain.SearchFilter, maxResults int) ([]domain.SearchCandidate, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	terms := Tokenize(query)
	chunks, err := s.store.ListChunks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))
	candidates := make([]domain.SearchCandidate, 0, len(chunks))
	for _, chunk := range chunks {
		score := s.scoreChunk(strings.ToLower(chunk.Content), terms, queryLower)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, domain.SearchCandidate{
			ID:            fmt.Sprintf("chunk_%s", chunk.ID),
			Score:         score,
			AdjustedScore: score,
			Metadata: domain.CandidateMetadata{
				DocumentID:    chunk.DocumentID,
				DocumentTitle: chunk.DocumentTitle,
				ChunkIndex:    chunk.ChunkIndex,
				Content:       chunk.Content,
				StartChar:     chunk.StartChar,
				EndChar:       chunk.EndChar,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	s.logger.Debug("lexical search completed",
		"terms", len(terms),
		"scanned", len(chunks),
		"matched", len(candidates),
	)
	return candidates, nil
}

// scoreChunk combines a phrase bonus, per-term hits with occurrence
// weighting, and a pairwise proximity bonus, then normalizes by chunk
// length so short dense chunks outrank long ones with incidental
// matches.
func (s *Searcher) scoreChunk(content string, terms []string, queryLower string) float64 {
	score := 0.0

	if queryLower != "" && strings.Contains(content, queryLower) {
		score += s.phraseBonus
	}

	for _, term := range terms {
		count := strings.Count(content, term)
		if count == 0 {
			continue
		}
		score += s.termBonus
		extra := count - 1
		if extra > 3 {
			extra = 3
		}
		score += float64(extra) * s.occurrenceBonus
	}

	if len(terms) > 1 {
		for i, first := range terms {
			pos1 := strings.Index(content, first)
			if pos1 < 0 {
				continue
			}
			for _, second := range terms[i+1:] {
				pos2 := strings.Index(content, second)
				if pos2 < 0 {
					continue
				}
				distance := pos1 - pos2
				if distance < 0 {
					distance = -distance
				}
				if distance < s.proximityWindow {
					score += s.proximityBonus
				}
			}
		}
	}

	if len(content) > 0 {
		score *= s.lengthPivot / (float64(len(content)) + s.lengthPivot)
	}
	return score
}

// Tokenize lowercases the query and keeps terms longer than two
// characters with surrounding punctuation stripped.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		term := strings.Trim(f, `.,!?;:"'()[]{}`)
		if len(term) > 2 {
			terms = append(terms, term)
		}
	}
	return terms
}
