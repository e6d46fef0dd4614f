package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keyword heuristic used whenever the remote classifier is unavailable or fails.

var agreeTerms = []string{
	"agree", "yes", "right", "correct", "exactly", "true", "good", "good point", "well said",
	"love", "great", "awesome", "amazing", "excellent", "perfect", "best", "fantastic",
	"helpful", "informative", "useful", "insightful", "brilliant", "spot on", "valid",
	"thanks", "thank you", "👍", "❤️", "💯", "appreciate", "accurate",
}

var disagreeTerms = []string{
	"disagree", "no", "wrong", "incorrect", "false", "bad", "terrible", "awful",
	"hate", "dislike", "worst", "poor", "useless", "misleading", "inaccurate",
	"disappointing", "rubbish", "nonsense", "ridiculous", "stupid", "bs", "lies",
	"thumbs down", "👎", "waste", "garbage", "trash", "horrible", "not true",
}

var negationTerms = []string{
	"not", "never", "don't", "doesn't", "didn't", "isn't", "aren't", "wasn't", "weren't",
}

// ClassifyLocal scores text against fixed vocabularies. It is deterministic,
// performs no I/O and never fails. videoTitle is accepted for signature parity
// with the remote path and does not influence the score.
func ClassifyLocal(text, videoTitle string) Stance {
	if strings.TrimSpace(text) == "" {
		return StanceNeutral
	}
	lower := strings.ReplaceAll(strings.ToLower(text), "’", "'")

	agree, disagree := 0, 0
	var presentAgree int
	for _, term := range agreeTerms {
		if n := countTerm(lower, term); n > 0 {
			agree += n
			presentAgree++
		}
	}
	for _, term := range disagreeTerms {
		disagree += countTerm(lower, term)
	}

	// Presence-based negation: every negation token flips one unit per agree term present.
	for _, neg := range negationTerms {
		if countTerm(lower, neg) == 0 {
			continue
		}
		agree -= presentAgree
		disagree += presentAgree
	}

	switch {
	case agree > disagree:
		return StanceAgree
	case disagree > agree:
		return StanceDisagree
	default:
		return StanceNeutral
	}
}

// countTerm counts occurrences of term in s that are not embedded inside a longer word,
// so "agree" does not match inside "disagree" and "no" does not match inside "know".
func countTerm(s, term string) int {
	n := 0
	for i := 0; i <= len(s)-len(term); {
		j := strings.Index(s[i:], term)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(term)
		if isBoundary(s, term, start, end) {
			n++
		}
		i = start + 1
	}
	return n
}

// isBoundary checks word edges only where the term itself starts or ends with a word rune,
// so emoji terms match even when glued to text.
func isBoundary(s, term string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(term)
	last, _ := utf8.DecodeLastRuneInString(term)
	if start > 0 && isWordRune(first) {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) && isWordRune(last) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
