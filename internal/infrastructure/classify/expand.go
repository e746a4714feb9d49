package classify

import (
	"strings"

	"github.com/querylab/docquery/internal/core/domain"
)

type expansion struct {
	trigger string
	related []string
}

// synonymExpansions lists trigger terms with related phrases appended
// to the query before retrieval. Expansion augments the query; it
// never replaces the original terms. Order is fixed so the enhanced
// query is deterministic.
var synonymExpansions = map[domain.Domain][]expansion{
	domain.DomainInsurance: {
		{"surgery", []string{"surgical procedure", "operation", "medical procedure"}},
		{"coverage", []string{"benefits", "protection", "insurance"}},
		{"policy", []string{"plan", "contract", "agreement"}},
		{"claim", []string{"reimbursement", "payment", "settlement"}},
	},
	domain.DomainLegal: {
		{"contract", []string{"agreement", "document", "terms"}},
		{"clause", []string{"provision", "section", "paragraph"}},
		{"liability", []string{"responsibility", "obligation", "duty"}},
	},
}

// ExpandQuery appends domain synonyms for any trigger term present in
// the query.
func ExpandQuery(query string, dom domain.Domain) string {
	expansions, ok := synonymExpansions[dom]
	if !ok {
		return query
	}

	queryLower := strings.ToLower(query)
	seen := make(map[string]struct{})
	var extra []string
	for _, exp := range expansions {
		if !strings.Contains(queryLower, exp.trigger) {
			continue
		}
		for _, phrase := range exp.related {
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			extra = append(extra, phrase)
		}
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
