package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amishk599/remoteboard/internal/model"
)

// Decision reasons reported by the classifier.
const (
	ReasonOnSiteOrHybrid = "Explicitly on-site/hybrid"
	ReasonRestrictive    = "Restrictive keyword detected"
	ReasonRemote         = "Explicitly remote"
	ReasonRemoteLocation = "Remote keyword in location"
	ReasonNoIndicator    = "No clear remote indicator"
)

// DefaultRemoteKeywords mark a location as open to remote candidates.
var DefaultRemoteKeywords = []string{
	"remote", "worldwide", "global", "anywhere", "latam", "latin america",
}

// DefaultRestrictivePatterns detect postings that lock candidates to one
// country or timezone even when labeled remote.
var DefaultRestrictivePatterns = []string{
	`must\s+(?:reside|live|be\s+located)\s+in\s+the\s+(?:us|u\.s\.|united\s+states)`,
	`\bu\.?s\.?\s+citizens?\s+only\b`,
	`must\s+be\s+(?:a\s+)?u\.?s\.?\s+citizen`,
	`authori[sz]ed\s+to\s+work\s+in\s+the\s+(?:us|u\.s\.|united\s+states)`,
	// Upper case only: "contact us only" is not a country restriction.
	`\b(?-i:US|USA|U\.S\.)[\s-]+only\b`,
	`must\s+(?:work|be\s+available)\s+(?:during\s+)?(?:in\s+)?(?:est|pst|cst|mst|et|pt)\s+(?:business\s+)?hours`,
}

// Decision is the outcome of classifying one posting.
type Decision struct {
	Relevant bool
	Reason   string
}

// RelevanceClassifier decides whether a posting is open to remote
// candidates in the target regions. It performs no I/O.
type RelevanceClassifier struct {
	remoteKeywords []string
	restrictive    []*regexp.Regexp
}

// NewRelevanceClassifier builds a classifier from keyword lists. Empty
// lists fall back to the defaults. Target regions count as remote keywords
// when they appear in the location.
func NewRelevanceClassifier(remoteKeywords, targetRegions, restrictivePatterns []string) (*RelevanceClassifier, error) {
	if len(remoteKeywords) == 0 {
		remoteKeywords = DefaultRemoteKeywords
	}
	if len(restrictivePatterns) == 0 {
		restrictivePatterns = DefaultRestrictivePatterns
	}

	c := &RelevanceClassifier{}
	for _, kw := range append(append([]string{}, remoteKeywords...), targetRegions...) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			c.remoteKeywords = append(c.remoteKeywords, kw)
		}
	}
	for _, p := range restrictivePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling restrictive pattern %q: %w", p, err)
		}
		c.restrictive = append(c.restrictive, re)
	}
	return c, nil
}

// NewDefaultClassifier returns a classifier using the built-in lists.
func NewDefaultClassifier() *RelevanceClassifier {
	c, err := NewRelevanceClassifier(nil, nil, nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify applies the rules in order; the first match wins.
func (c *RelevanceClassifier) Classify(p model.RawPosting) Decision {
	switch p.WorkplaceType {
	case model.WorkplaceOnSite, model.WorkplaceHybrid:
		return Decision{Relevant: false, Reason: ReasonOnSiteOrHybrid}
	}

	text := p.Location + "\n" + p.DescriptionText
	if p.DescriptionText == "" {
		text = p.Location + "\n" + p.DescriptionHTML
	}
	for _, re := range c.restrictive {
		if re.MatchString(text) {
			return Decision{Relevant: false, Reason: ReasonRestrictive}
		}
	}

	if p.WorkplaceType == model.WorkplaceRemote {
		return Decision{Relevant: true, Reason: ReasonRemote}
	}

	location := strings.ToLower(p.Location)
	for _, kw := range c.remoteKeywords {
		if strings.Contains(location, kw) {
			return Decision{Relevant: true, Reason: ReasonRemoteLocation}
		}
	}

	return Decision{Relevant: false, Reason: ReasonNoIndicator}
}
