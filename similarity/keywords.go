package similarity

import (
	"regexp"
	"strings"
	"unicode"
)

// courseCodePattern matches department-style codes such as "MATH 0180"
// or "CSCI0200": 2-4 letters, optional space, 3-4 digits. Titles are
// upper-cased before matching so "csci 0200" counts too.
var courseCodePattern = regexp.MustCompile(`\b[A-Z]{2,4} ?[0-9]{3,4}\b`)

// stopwords are common English words that never count as keywords.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"that": true, "this": true, "will": true, "have": true, "has": true,
	"been": true, "are": true, "was": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "would": true, "could": true,
	"should": true, "about": true, "after": true, "before": true, "into": true,
	"over": true, "under": true, "then": true, "than": true, "them": true,
	"they": true, "their": true, "there": true, "here": true, "your": true,
	"some": true, "each": true, "every": true, "also": true, "just": true,
}

// minKeywordLength excludes short filler words from the keyword set.
// Course codes bypass this filter.
const minKeywordLength = 3

// ExtractKeywords pulls the matchable keywords out of an event title:
// course codes (upper-cased, spaces removed) plus lowercase words longer
// than minKeywordLength that are not stopwords.
func ExtractKeywords(title string) map[string]bool {
	keywords := make(map[string]bool)

	for _, code := range courseCodePattern.FindAllString(strings.ToUpper(title), -1) {
		keywords[strings.ReplaceAll(code, " ", "")] = true
	}

	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if len([]rune(word)) <= minKeywordLength || stopwords[word] {
			continue
		}
		keywords[word] = true
	}

	return keywords
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0, not 1.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
