package usecase

import (
	"strings"
	"testing"

	"github.com/querylab/docquery/internal/core/domain"
)

func answerWith(textLen, reasoningLen, evidenceItems int) *domain.Answer {
	evidence := make([]string, evidenceItems)
	for i := range evidence {
		evidence[i] = "supporting passage"
	}
	return &domain.Answer{
		Text:      strings.Repeat("a", textLen),
		Reasoning: strings.Repeat("r", reasoningLen),
		Evidence:  evidence,
	}
}

func TestScoreConfidenceEmpty(t *testing.T) {
	if got := ScoreConfidence(nil, nil); got != 0 {
		t.Fatalf("confidence = %f, want 0", got)
	}
}

func TestScoreConfidenceSaturated(t *testing.T) {
	// Max-score candidates, a long answer and three evidence items max
	// out every component: 0.4*1 + 0.3*1 + 0.3*1.
	in := []domain.SearchCandidate{
		candidate("a", 1.0, "x"),
		candidate("b", 1.0, "x"),
		candidate("c", 1.0, "x"),
	}
	if got := ScoreConfidence(in, answerWith(400, 200, 3)); got != 1.0 {
		t.Fatalf("confidence = %f, want 1.0", got)
	}
}

func TestScoreConfidencePartial(t *testing.T) {
	// One candidate at 0.5, 250 chars of answer+reasoning, one cited
	// item: 0.4*0.5 + 0.3*(250/500) + 0.3*(1/3) = 0.45.
	in := []domain.SearchCandidate{
		candidate("a", 0.5, "x"),
	}
	if got := ScoreConfidence(in, answerWith(150, 100, 1)); got != 0.45 {
		t.Fatalf("confidence = %f, want 0.45", got)
	}
}

func TestScoreConfidenceClampsInflatedScores(t *testing.T) {
	// Lexical scores can exceed 1; the search component must clamp.
	in := []domain.SearchCandidate{
		candidate("a", 14.0, "x"),
		candidate("b", 12.0, "x"),
		candidate("c", 11.0, "x"),
	}
	if got := ScoreConfidence(in, answerWith(500, 0, 3)); got != 1.0 {
		t.Fatalf("confidence = %f, want 1.0", got)
	}
}

func TestScoreConfidenceNilAnswer(t *testing.T) {
	// Only the search component contributes: 0.4*1.
	in := []domain.SearchCandidate{
		candidate("a", 1.0, "x"),
	}
	if got := ScoreConfidence(in, nil); got != 0.4 {
		t.Fatalf("confidence = %f, want 0.4", got)
	}
}

func TestScoreConfidenceNoCandidatesWithAnswer(t *testing.T) {
	// The web-search fallback path has an answer but no candidates:
	// 0.3*1 + 0.3*(2/3) = 0.5.
	if got := ScoreConfidence(nil, answerWith(600, 0, 2)); got != 0.5 {
		t.Fatalf("confidence = %f, want 0.5", got)
	}
}

func TestScoreConfidenceRoundsToThreeDecimals(t *testing.T) {
	// 0.4*(1/3) with no answer has a repeating-decimal component and
	// must round cleanly to 0.133.
	in := []domain.SearchCandidate{
		candidate("a", 1.0/3.0, "x"),
	}
	if got := ScoreConfidence(in, nil); got != 0.133 {
		t.Fatalf("confidence = %f, want 0.133", got)
	}
}
