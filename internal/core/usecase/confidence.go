package usecase

import (
	"math"

	"github.com/querylab/docquery/internal/core/domain"
)

// Confidence weights. Search quality dominates because a weak match
// set makes answer volume and evidence count meaningless.
const (
	confidenceSearchWeight   = 0.4
	confidenceContentWeight  = 0.3
	confidenceEvidenceWeight = 0.3

	contentLengthPivot = 500.0
	evidenceCountPivot = 3.0
)

// ScoreConfidence estimates answer reliability as a heuristic in
// [0,1]. It is a relative ranking signal, not a calibrated
// probability. Search quality is the mean raw score of all candidates
// clamped to [0,1]; content volume saturates at contentLengthPivot
// characters of answer plus reasoning; evidence saturates at
// evidenceCountPivot cited items. Result is rounded to three decimals.
func ScoreConfidence(candidates []domain.SearchCandidate, answer *domain.Answer) float64 {
	var searchQuality float64
	if len(candidates) > 0 {
		var scoreSum float64
		for _, c := range candidates {
			scoreSum += c.Score
		}
		searchQuality = clamp01(scoreSum / float64(len(candidates)))
	}

	var contentVolume, evidence float64
	if answer != nil {
		contentChars := len(answer.Text) + len(answer.Reasoning)
		contentVolume = clamp01(float64(contentChars) / contentLengthPivot)
		evidence = clamp01(float64(len(answer.Evidence)) / evidenceCountPivot)
	}

	confidence := confidenceSearchWeight*searchQuality +
		confidenceContentWeight*contentVolume +
		confidenceEvidenceWeight*evidence
	return math.Round(confidence*1000) / 1000
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
