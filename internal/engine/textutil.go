package engine

import (
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
	"golang.org/x/net/html"
)

// Cache key prefix limits, in runes.
const (
	keyTextRunes  = 200
	keyTitleRunes = 100
)

// User-Agent sent to upstream APIs.
const UserAgentBot = "GoStance/1.0"

// Truncate returns the first n bytes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// StanceKey returns the classification cache key: a case-folded, whitespace-collapsed
// prefix of the comment plus a prefix of the video title. It depends only on the input,
// never on which path produced the cached value.
func StanceKey(text, videoTitle string) string {
	norm := func(s string, limit int) string {
		s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
		return TruncateRunes(s, limit, "")
	}
	return CacheKey("stance", norm(text, keyTextRunes), norm(videoTitle, keyTitleRunes))
}

// MaskUsername keeps the first two runes and masks the rest with '*'.
// Names of two runes or fewer are returned unchanged.
func MaskUsername(name string) string {
	r := []rune(name)
	if len(r) <= 2 {
		return name
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-2)
}

// HTMLToText converts an HTML fragment (YouTube textDisplay) to plain text:
// tags are dropped, entities decoded, <br> becomes a newline.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				sb.WriteByte('\n')
			}
		}
	}
}
