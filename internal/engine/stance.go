package engine

import "strings"

// Stance is the closed three-valued classification of a comment toward its video.
type Stance string

const (
	StanceAgree    Stance = "agree"
	StanceDisagree Stance = "disagree"
	StanceNeutral  Stance = "neutral"
)

// Stances lists every valid value in display order.
var Stances = []Stance{StanceAgree, StanceDisagree, StanceNeutral}

// IsValid reports whether s is one of the three closed values.
func (s Stance) IsValid() bool {
	switch s {
	case StanceAgree, StanceDisagree, StanceNeutral:
		return true
	}
	return false
}

// ParseStance normalizes a raw reply (trim, case-fold, strip quotes and a trailing period).
// ok is false when the reply is not exactly one of the closed values.
func ParseStance(raw string) (Stance, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for {
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.Trim(s, "\"'`"), "."))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	st := Stance(s)
	if !st.IsValid() {
		return StanceNeutral, false
	}
	return st, true
}
