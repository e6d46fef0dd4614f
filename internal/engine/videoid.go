package engine

import "regexp"

// videoIDRE accepts watch?v=, youtu.be/, /embed/, /v/, /e/, /shorts/, /live/ and /<path>/<segment>/ URL forms.
var videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts|live)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractVideoID pulls the 11-char video ID from any YouTube URL format; "" if none.
func ExtractVideoID(rawURL string) string {
	m := videoIDRE.FindStringSubmatch(rawURL)
	if len(m) >= 2 {
		return m[1]
	}
	return ""
}
