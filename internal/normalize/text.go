package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionRequirements
	sectionResponsibilities
	sectionBenefits
	sectionOther
)

var sectionHeadings = []struct {
	kind     sectionKind
	keywords []string
}{
	{sectionRequirements, []string{
		"requirement", "qualification", "what you bring", "what we're looking for",
		"what we are looking for", "who you are", "about you", "you have", "you might be",
		"must have", "nice to have", "skills", "you'll bring", "you will bring",
	}},
	{sectionResponsibilities, []string{
		"responsibilit", "what you'll do", "what you will do", "what you’ll do",
		"your role", "the role", "day to day", "day-to-day", "your mission", "you will",
	}},
	{sectionBenefits, []string{
		"benefit", "perks", "what we offer", "we offer", "why join", "why you'll love",
		"compensation", "what's in it for you",
	}},
}

// description is a job description reduced to plain text plus the sections a
// job page shows separately.
type description struct {
	Text             string
	Requirements     string
	Responsibilities string
	Benefits         string
}

// parseDescription walks the block elements of an HTML description in
// document order. Headings (or paragraphs made only of bold text) switch the
// current section; paragraphs and list items are appended to it.
func parseDescription(htmlContent string) (description, error) {
	var d description
	if strings.TrimSpace(htmlContent) == "" {
		return d, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return d, err
	}

	var all []string
	sections := map[sectionKind][]string{}
	current := sectionNone

	doc.Find("h1, h2, h3, h4, h5, h6, p, li, div").Each(func(_ int, s *goquery.Selection) {
		// Text is taken from the outermost block only.
		if s.ParentsFiltered("p, li").Length() > 0 {
			return
		}
		node := goquery.NodeName(s)
		if node == "div" && s.Find("h1, h2, h3, h4, h5, h6, p, li, div").Length() > 0 {
			return
		}

		text := collapse(s.Text())
		if text == "" {
			return
		}

		if isHeading(s, node, text) {
			current = headingKind(text)
			all = append(all, text)
			return
		}

		line := text
		if node == "li" {
			line = "- " + text
		}
		all = append(all, line)
		if current != sectionNone && current != sectionOther {
			sections[current] = append(sections[current], line)
		}
	})

	// Bare text with no block elements at all.
	if len(all) == 0 {
		if text := collapse(doc.Text()); text != "" {
			all = append(all, text)
		}
	}

	d.Text = strings.Join(all, "\n")
	d.Requirements = strings.Join(sections[sectionRequirements], "\n")
	d.Responsibilities = strings.Join(sections[sectionResponsibilities], "\n")
	d.Benefits = strings.Join(sections[sectionBenefits], "\n")
	return d, nil
}

func isHeading(s *goquery.Selection, node, text string) bool {
	switch node {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	case "p", "div":
		if len(text) > 80 {
			return false
		}
		bold := collapse(s.Find("strong, b").Text())
		return bold != "" && bold == text
	}
	return false
}

func headingKind(text string) sectionKind {
	lower := strings.ToLower(text)
	for _, h := range sectionHeadings {
		for _, kw := range h.keywords {
			if strings.Contains(lower, kw) {
				return h.kind
			}
		}
	}
	return sectionOther
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
