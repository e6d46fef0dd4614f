package engine

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Keyword extraction limits.
const (
	topKeywords    = 10
	minKeywordRune = 4
)

var stopWords = map[string]bool{
	"the": true, "and": true, "a": true, "to": true, "of": true, "in": true, "is": true,
	"it": true, "you": true, "that": true, "was": true, "for": true, "on": true, "are": true,
	"with": true, "as": true, "this": true, "not": true, "but": true, "be": true,
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// Distribution counts comments per stance.
func Distribution(comments []AnalyzedComment) SentimentDistribution {
	var d SentimentDistribution
	for _, c := range comments {
		switch c.Sentiment {
		case StanceAgree:
			d.Agree++
		case StanceDisagree:
			d.Disagree++
		default:
			d.Neutral++
		}
	}
	return d
}

// MonthlyDistribution buckets comments by "YYYY-M" (1-based month, UTC).
// Unparsable timestamps fall into the bucket of now.
func MonthlyDistribution(comments []AnalyzedComment, now time.Time) map[string]int {
	out := make(map[string]int)
	for _, c := range comments {
		t, err := time.Parse(time.RFC3339, c.PublishedAt)
		if err != nil {
			t = now
		}
		t = t.UTC()
		out[fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))]++
	}
	return out
}

// ExtractKeywords returns up to 10 most frequent words across texts: lower-cased,
// punctuation stripped, stop words and words of 3 runes or fewer removed.
// Ties keep first-encountered order.
func ExtractKeywords(texts []string) []string {
	joined := nonWordRe.ReplaceAllString(strings.ToLower(strings.Join(texts, " ")), "")

	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Fields(joined) {
		if len([]rune(w)) < minKeywordRune || stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	if len(order) > topKeywords {
		order = order[:topKeywords]
	}
	if order == nil {
		order = []string{}
	}
	return order
}
