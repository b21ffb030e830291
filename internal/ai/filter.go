package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/x-monitor/internal/models"
)

// IsAirdropRelated reports whether a tweet is airdrop campaign content.
//
// This is a fail-closed filter: a missing API key, a transport error, or an
// ambiguous verdict all yield false. Under-notifying is preferred over
// spamming channels or crashing the pipeline, so none of these conditions
// surface as errors. A single attempt is made per tweet per cycle.
func (c *Client) IsAirdropRelated(ctx context.Context, tweet *models.Tweet) bool {
	if c.apiKey == "" {
		c.log.Warn().Msg("Anthropic API key not configured, skipping airdrop check")
		return false
	}

	// Embed the tweet text and any extracted URLs in a single prompt
	content := tweet.Text
	if urls := tweet.ExpandedURLs(); len(urls) > 0 {
		content += "\n\nRelated links: " + strings.Join(urls, ", ")
	}

	response, err := c.Complete(ctx, AirdropFilterSystemPrompt, fmt.Sprintf(AirdropFilterUserPrompt, content))
	if err != nil {
		c.log.WithTweetID(tweet.ID).Error().
			Err(err).
			Msg("Airdrop check failed, treating tweet as not relevant")
		return false
	}

	return parseVerdict(response)
}

// parseVerdict accepts the provider's answer as a positive verdict only if
// the normalized response is exactly "true", "yes", or contains "true"
func parseVerdict(response string) bool {
	v := strings.ToLower(strings.TrimSpace(response))
	return v == "true" || v == "yes" || strings.Contains(v, "true")
}
