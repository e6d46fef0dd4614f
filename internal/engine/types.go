package engine

// Comment is one top-level comment as supplied by a CommentSource.
// Any field may be empty; Service fills defaults.
type Comment struct {
	ID          string `json:"commentId"`
	Text        string `json:"text"`
	Author      string `json:"username"`
	PublishedAt string `json:"publishedAt"`
}

// AnalyzeInput is the request at the process boundary.
type AnalyzeInput struct {
	VideoURL   string `json:"videoUrl" jsonschema:"YouTube video URL (watch, youtu.be, embed, shorts)"`
	VideoTitle string `json:"videoTitle,omitempty" jsonschema:"Video title used as classification context (default: YouTube Video)"`
}

// AnalyzedComment is one classified comment in the response. Username is masked.
type AnalyzedComment struct {
	CommentID   string `json:"commentId"`
	Text        string `json:"text"`
	Username    string `json:"username"`
	PublishedAt string `json:"publishedAt"`
	Sentiment   Stance `json:"sentiment"`
}

// SentimentDistribution counts comments per stance.
type SentimentDistribution struct {
	Agree    int `json:"agree"`
	Disagree int `json:"disagree"`
	Neutral  int `json:"neutral"`
}

// AnalyzeOutput is the response at the process boundary.
type AnalyzeOutput struct {
	TotalComments         int                   `json:"totalComments"`
	SentimentDistribution SentimentDistribution `json:"sentimentDistribution"`
	MonthlyDistribution   map[string]int        `json:"monthlyDistribution"`
	Keywords              []string              `json:"keywords"`
	Comments              []AnalyzedComment     `json:"comments"`
}
