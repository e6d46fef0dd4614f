// Package stanceserver registers the stance-analysis MCP tools.
package stanceserver

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go_stance/internal/engine"
	"github.com/anatolykoptev/go_stance/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Analyzer runs a full video analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in engine.AnalyzeInput) (engine.AnalyzeOutput, error)
}

// Classifier classifies a single comment.
type Classifier interface {
	Classify(ctx context.Context, text, videoTitle string) engine.Stance
}

// History lists previously analyzed comments.
type History interface {
	ListByVideo(ctx context.Context, videoID string, limit int) ([]engine.CommentRecord, error)
}

// Deps are the collaborators behind the tools. A nil History skips video_comment_history.
type Deps struct {
	Analyzer   Analyzer
	Classifier Classifier
	History    History
}

// ClassifyInput is the input for classify_comment_stance.
type ClassifyInput struct {
	Text       string `json:"text" jsonschema:"Comment text to classify"`
	VideoTitle string `json:"videoTitle,omitempty" jsonschema:"Video title used as context (default: YouTube Video)"`
}

// ClassifyOutput is the output for classify_comment_stance.
type ClassifyOutput struct {
	Sentiment engine.Stance `json:"sentiment"`
}

// HistoryInput is the input for video_comment_history.
type HistoryInput struct {
	Video string `json:"video" jsonschema:"YouTube video URL or 11-char video ID"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max comments to return (default 500)"`
}

// HistoryOutput is the output for video_comment_history.
type HistoryOutput struct {
	VideoID  string                   `json:"videoId"`
	Total    int                      `json:"total"`
	Comments []engine.AnalyzedComment `json:"comments"`
}

// RegisterTools registers the stance tools on server and returns how many were added.
func RegisterTools(server *mcp.Server, d Deps) int {
	n := 0
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_video_comments",
		Description: "Fetch the top-level comments of a YouTube video and classify each one as agree, disagree or neutral relative to the video's position. Returns totals, sentiment and monthly distributions, top keywords, and the classified comments with masked usernames. Degrades to a local heuristic when the remote classifier is rate limited.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, analyzeHandler(d.Analyzer))
	n++

	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_comment_stance",
		Description: "Classify a single comment as agree, disagree or neutral in the context of a video title. Uses the same cache, backoff and local fallback as analyze_video_comments.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, classifyHandler(d.Classifier))
	n++

	if d.History != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "video_comment_history",
			Description: "List comments previously analyzed for a video from the persistence store, oldest first. Accepts a YouTube URL or a bare video ID.",
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
		}, historyHandler(d.History))
		n++
	}
	return n
}

func analyzeHandler(a Analyzer) func(context.Context, *mcp.CallToolRequest, engine.AnalyzeInput) (*mcp.CallToolResult, engine.AnalyzeOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.AnalyzeInput) (*mcp.CallToolResult, engine.AnalyzeOutput, error) {
		out, err := a.Analyze(ctx, input)
		if err != nil {
			_, msg := toolutil.PublicError(err)
			return nil, engine.AnalyzeOutput{}, errors.New(msg)
		}
		return nil, out, nil
	}
}

func classifyHandler(c Classifier) func(context.Context, *mcp.CallToolRequest, ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ClassifyInput) (*mcp.CallToolResult, ClassifyOutput, error) {
		if strings.TrimSpace(input.Text) == "" {
			return nil, ClassifyOutput{}, errors.New("text is required")
		}
		title := strings.TrimSpace(input.VideoTitle)
		if title == "" {
			title = engine.DefaultVideoTitle
		}
		return nil, ClassifyOutput{Sentiment: c.Classify(ctx, input.Text, title)}, nil
	}
}

func historyHandler(h History) func(context.Context, *mcp.CallToolRequest, HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
		videoID, err := toolutil.ResolveVideoID(input.Video)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		recs, err := h.ListByVideo(ctx, videoID, input.Limit)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		comments := toolutil.RecordsToComments(recs)
		return nil, HistoryOutput{VideoID: videoID, Total: len(comments), Comments: comments}, nil
	}
}
