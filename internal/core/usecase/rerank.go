package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
)

// termBoost adds a flat bonus when any of its terms appears in the
// candidate content.
type termBoost struct {
	terms []string
	boost float64
}

// patternBoost adds a flat bonus when the compiled expression matches
// the candidate content.
type patternBoost struct {
	pattern *regexp.Regexp
	boost   float64
}

// Boost tables are data so that tuning a domain never touches the
// rerank loop. Terms are matched case-insensitively as substrings,
// mirroring how the lexical scorer treats content.
var domainTermBoosts = map[domain.Domain][]termBoost{
	domain.DomainInsurance: {
		{terms: []string{"coverage", "covered", "cover"}, boost: 0.05},
		{terms: []string{"claim", "claims"}, boost: 0.05},
		{terms: []string{"exclusion", "excluded", "exclusions"}, boost: 0.05},
	},
	domain.DomainHR: {
		{terms: []string{"policy", "policies"}, boost: 0.03},
		{terms: []string{"employee", "employees"}, boost: 0.03},
		{terms: []string{"leave", "vacation", "pto"}, boost: 0.03},
	},
	domain.DomainCompliance: {
		{terms: []string{"compliance", "compliant"}, boost: 0.04},
		{terms: []string{"regulation", "regulatory"}, boost: 0.04},
		{terms: []string{"audit", "auditing"}, boost: 0.04},
	},
}

var domainPatternBoosts = map[domain.Domain][]patternBoost{
	domain.DomainLegal: {
		{pattern: regexp.MustCompile(`(?i)(section|clause|paragraph|article)\s+\d+`), boost: 0.10},
		{pattern: regexp.MustCompile(`(?i)\b(whereas|therefore|notwithstanding)\b`), boost: 0.05},
		{pattern: regexp.MustCompile(`(?i)\b(shall|must|required|prohibited)\b`), boost: 0.05},
	},
}

// Reranker adjusts candidate scores with domain-specific boosts and
// re-sorts. The general domain applies no boosts, so reranking there
// preserves the incoming order.
type Reranker struct{}

func NewReranker() *Reranker {
	return &Reranker{}
}

// Rerank returns the candidates ordered by adjusted score. Boosts are
// additive per matched family; a candidate matching no family keeps
// its original score. The sort is stable so equal adjusted scores keep
// retrieval order.
func (r *Reranker) Rerank(candidates []domain.SearchCandidate, dom domain.Domain) []domain.SearchCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	termFamilies := domainTermBoosts[dom]
	patternFamilies := domainPatternBoosts[dom]

	out := make([]domain.SearchCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		boost := contentBoost(out[i].Metadata.Content, termFamilies, patternFamilies)
		out[i].DomainScore = boost
		out[i].AdjustedScore = out[i].Score + boost
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AdjustedScore > out[j].AdjustedScore
	})
	return out
}

func contentBoost(content string, termFamilies []termBoost, patternFamilies []patternBoost) float64 {
	if content == "" || (len(termFamilies) == 0 && len(patternFamilies) == 0) {
		return 0
	}
	lower := strings.ToLower(content)

	total := 0.0
	for _, family := range termFamilies {
		for _, term := range family.terms {
			if strings.Contains(lower, term) {
				total += family.boost
				break
			}
		}
	}
	for _, family := range patternFamilies {
		if family.pattern.MatchString(content) {
			total += family.boost
		}
	}
	return total
}
