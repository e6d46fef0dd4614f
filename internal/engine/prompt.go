package engine

// Prompt templates for the remote classifier.

// stanceSystemPrompt constrains the model to the closed reply set.
const stanceSystemPrompt = `You classify YouTube comments by their stance toward the video.
Return ONLY one word: agree, disagree, or neutral.`

// stancePrompt asks for the stance of one comment.
// Args: video title, comment text.
const stancePrompt = `Analyze the sentiment of this YouTube comment for the video titled "%s".
Categorize it as one of: "agree" (supports the content), "disagree" (opposes the content),
or "neutral" (neither clearly agrees nor disagrees).
Comment: "%s"

Return ONLY one word: either "agree", "disagree", or "neutral".`
