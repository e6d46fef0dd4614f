package engine

import "testing"

func TestClassifyLocal(t *testing.T) {
	tests := []struct {
		text string
		want Stance
	}{
		{"", StanceNeutral},
		{"   ", StanceNeutral},
		{"I totally agree, great point", StanceAgree},
		{"this is completely wrong and terrible", StanceDisagree},
		{"not good at all", StanceDisagree},
		{"I agree with this", StanceAgree},
		{"I disagree completely", StanceDisagree},
		{"nice video", StanceNeutral},
		{"Good point, well said", StanceAgree},
		{"I don't think this is right", StanceDisagree},
		{"I don’t think this is right", StanceDisagree},
		{"I know this is great", StanceAgree},
		{"👍👍", StanceAgree},
		{"good and bad", StanceNeutral},
		{"This is not true", StanceDisagree},
		{"THANKS!", StanceAgree},
		{"first", StanceNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ClassifyLocal(tt.text, "Some Video"); got != tt.want {
				t.Errorf("ClassifyLocal(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyLocalIgnoresTitle(t *testing.T) {
	text := "great explanation"
	if ClassifyLocal(text, "A") != ClassifyLocal(text, "something terrible") {
		t.Error("video title must not influence the local score")
	}
}

func TestCountTerm(t *testing.T) {
	tests := []struct {
		s, term string
		want    int
	}{
		{"disagree", "agree", 0},
		{"agree agree", "agree", 2},
		{"know", "no", 0},
		{"no, no!", "no", 2},
		{"great👍", "👍", 1},
		{"well said.", "well said", 1},
	}
	for _, tt := range tests {
		if got := countTerm(tt.s, tt.term); got != tt.want {
			t.Errorf("countTerm(%q, %q) = %d, want %d", tt.s, tt.term, got, tt.want)
		}
	}
}

func TestParseStance(t *testing.T) {
	tests := []struct {
		raw    string
		want   Stance
		wantOK bool
	}{
		{"Agree \n", StanceAgree, true},
		{"DISAGREE", StanceDisagree, true},
		{`"neutral".`, StanceNeutral, true},
		{`"agree".`, StanceAgree, true},
		{"'disagree.'", StanceDisagree, true},
		{"`agree` .", StanceAgree, true},
		{"maybe", StanceNeutral, false},
		{"", StanceNeutral, false},
		{"agree, mostly", StanceNeutral, false},
	}
	for _, tt := range tests {
		got, ok := ParseStance(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseStance(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
