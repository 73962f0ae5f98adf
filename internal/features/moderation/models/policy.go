package models

import "strings"

// DefaultForbiddenTerms is the built-in blocklist: link markers plus the
// profanity terms the bot has always rejected.
var DefaultForbiddenTerms = []string{
	"http://",
	"https://",
	".com",
	".org",
	"سب",
	"شتم",
	"قذف",
}

const DefaultBanThreshold = 3

// Policy is the forbidden-content configuration: a substring blocklist and
// the warning count at which access is permanently revoked.
type Policy struct {
	terms     []string
	threshold int
}

func NewPolicy(terms []string, threshold int) Policy {
	if len(terms) == 0 {
		terms = DefaultForbiddenTerms
	}
	if threshold <= 0 {
		threshold = DefaultBanThreshold
	}
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(strings.ToLower(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	return Policy{terms: lowered, threshold: threshold}
}

// Matches reports whether the text contains any forbidden term,
// case-insensitively. First match wins; there is no scoring.
func (p Policy) Matches(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, term := range p.terms {
		if strings.Contains(lowered, term) {
			return term, true
		}
	}
	return "", false
}

func (p Policy) Threshold() int {
	return p.threshold
}
