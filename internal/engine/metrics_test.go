package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFormatMetrics(t *testing.T) {
	RecordCommentFetch("success")
	classifications.WithLabelValues("local").Inc()

	out := FormatMetrics()
	for _, want := range []string{"go_stance_comment_fetches_total_success ", "go_stance_classifications_total_local "} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatMetrics missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("output should end with newline")
	}
}

func TestTrackOperation(t *testing.T) {
	want := errors.New("x")
	if err := TrackOperation(context.Background(), "op", func(context.Context) error { return want }); err != want {
		t.Errorf("TrackOperation returned %v, want %v", err, want)
	}
}
