package domain

import "fmt"

// Domain is the closed set of knowledge domains driving keyword boosts
// and prompt selection. Any other value is rejected at the boundary.
type Domain string

const (
	DomainInsurance  Domain = "insurance"
	DomainLegal      Domain = "legal"
	DomainHR         Domain = "hr"
	DomainCompliance Domain = "compliance"
	DomainGeneral    Domain = "general"
)

// AllDomains is the canonical enumeration order. Classifier ties
// resolve to the earliest entry, so the order is part of the contract.
var AllDomains = []Domain{
	DomainInsurance,
	DomainLegal,
	DomainHR,
	DomainCompliance,
	DomainGeneral,
}

// ParseDomain validates a caller-supplied domain string. The empty
// string is accepted and means "auto-detect".
func ParseDomain(s string) (Domain, error) {
	if s == "" {
		return "", nil
	}
	for _, d := range AllDomains {
		if string(d) == s {
			return d, nil
		}
	}
	return "", WrapError(ErrInvalidDomain, "parse domain", fmt.Errorf("unknown domain %q", s))
}

func (d Domain) Valid() bool {
	for _, known := range AllDomains {
		if d == known {
			return true
		}
	}
	return false
}

// OrGeneral coerces the zero value to the general domain.
func (d Domain) OrGeneral() Domain {
	if d == "" {
		return DomainGeneral
	}
	return d
}
