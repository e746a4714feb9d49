package classify

import (
	"regexp"
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
)

// Classifier scores text against per-domain keyword and pattern sets.
// Document classification counts distinct keywords contained in the
// text or title; query classification counts pattern occurrences.
// The asymmetry is deliberate: document text is long enough that
// containment discriminates, while short queries need occurrence
// weighting.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

// documentKeywords are matched by lowercase containment against
// document text and title.
var documentKeywords = map[domain.Domain][]string{
	domain.DomainInsurance: {
		"policy", "coverage", "premium", "claim", "deductible", "beneficiary", "insurance",
	},
	domain.DomainLegal: {
		"contract", "agreement", "clause", "legal", "court", "lawsuit", "attorney", "jurisdiction",
	},
	domain.DomainHR: {
		"employee", "employment", "hr", "human resources", "payroll", "benefits", "personnel",
	},
	domain.DomainCompliance: {
		"compliance", "regulation", "audit", "regulatory", "standards", "requirements",
	},
}

// queryPatterns are word-boundary regexes; every occurrence counts
// toward the domain score.
var queryPatterns = map[domain.Domain][]*regexp.Regexp{
	domain.DomainInsurance: compileAll(
		`\b(policy|coverage|premium|claim|deductible|beneficiary)\b`,
		`\b(insurance|insured|insurer|underwriter)\b`,
		`\b(medical|health|dental|vision|disability)\b`,
		`\b(cover|covers|covered)\b`,
	),
	domain.DomainLegal: compileAll(
		`\b(contract|agreement|clause|terms|conditions)\b`,
		`\b(legal|court|lawsuit|attorney|jurisdiction)\b`,
		`\b(liability|obligation|breach|damages)\b`,
	),
	domain.DomainHR: compileAll(
		`\b(employee|employment|hr|human resources)\b`,
		`\b(payroll|benefits|personnel|workplace)\b`,
		`\b(vacation|sick leave|performance|disciplinary)\b`,
	),
	domain.DomainCompliance: compileAll(
		`\b(compliance|regulation|audit|regulatory)\b`,
		`\b(standards|requirements|procedure)\b`,
		`\b(sox|gdpr|hipaa|iso|certification)\b`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// ClassifyDocument returns the domain with the most distinct keyword
// hits in text or title. Zero hits everywhere means general; ties go
// to the earliest domain in the canonical enumeration order.
func (c *Classifier) ClassifyDocument(text, titleHint string) domain.Domain {
	textLower := strings.ToLower(text)
	titleLower := strings.ToLower(titleHint)

	best := domain.DomainGeneral
	bestScore := 0
	for _, d := range domain.AllDomains {
		keywords, ok := documentKeywords[d]
		if !ok {
			continue
		}
		score := 0
		for _, kw := range keywords {
			if strings.Contains(textLower, kw) || strings.Contains(titleLower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = d
			bestScore = score
		}
	}
	return best
}

// ClassifyQuery returns the domain whose patterns occur most often in
// the query. Repeated occurrences of a single pattern all count.
func (c *Classifier) ClassifyQuery(query string) domain.Domain {
	queryLower := strings.ToLower(query)

	best := domain.DomainGeneral
	bestScore := 0
	for _, d := range domain.AllDomains {
		patterns, ok := queryPatterns[d]
		if !ok {
			continue
		}
		score := 0
		for _, re := range patterns {
			score += len(re.FindAllString(queryLower, -1))
		}
		if score > bestScore {
			best = d
			bestScore = score
		}
	}
	return best
}
