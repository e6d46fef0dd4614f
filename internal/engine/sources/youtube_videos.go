package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_stance/internal/engine"
)

type ytVideosResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// Title looks up the video title via videos.list. It shares the comment gate and pacing;
// a closed gate or a missing key yields "" without an error.
func (y *YouTubeComments) Title(ctx context.Context, videoID string) (string, error) {
	key := "title:" + videoID
	if y.titles != nil {
		if t, ok := y.titles.Get(ctx, key); ok {
			return t, nil
		}
	}
	if len(y.apiKeys) == 0 || !y.gate.IsAvailable() {
		return "", nil
	}

	title, err := withKeyFallback(y.apiKeys, func(apiKey string) (string, error) {
		if err := y.limiter.Wait(ctx); err != nil {
			return "", err
		}
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("id", videoID)
		params.Set("key", apiKey)

		var result ytVideosResp
		if err := y.getJSON(ctx, "/videos?"+params.Encode(), &result); err != nil {
			return "", err
		}
		if len(result.Items) == 0 {
			return "", nil
		}
		return strings.TrimSpace(result.Items[0].Snippet.Title), nil
	})
	if err != nil {
		if engine.IsRateLimited(err) {
			y.gate.TriggerBackoff()
		}
		return "", fmt.Errorf("youtube title %s: %w", videoID, err)
	}

	if y.titles != nil && title != "" {
		y.titles.Put(ctx, key, title, y.titleTTL)
	}
	return title, nil
}
