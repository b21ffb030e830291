package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/x-monitor/internal/config"
	"github.com/x-monitor/internal/notify"
	"github.com/x-monitor/pkg/logger"
	"github.com/x-monitor/pkg/ratelimit"
)

// maxItems bounds how many feed entries one digest carries
const maxItems = 10

// Broadcaster sends the daily news digest: it parses an RSS feed and
// pushes a numbered summary into a fixed Telegram group/topic. It shares
// the notification sender with the monitor pipeline but talks to Telegram
// directly rather than through a stored NotificationConfig.
type Broadcaster struct {
	cfg         config.DigestConfig
	parser      *gofeed.Parser
	sender      *notify.Sender
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates a new digest broadcaster
func New(cfg config.DigestConfig, sender *notify.Sender, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		cfg:         cfg,
		parser:      gofeed.NewParser(),
		sender:      sender,
		rateLimiter: limiter,
		log:         log.WithComponent("digest"),
	}
}

// Run fetches the configured feed and sends the digest message
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.cfg.BotToken == "" || b.cfg.ChatID == "" {
		return fmt.Errorf("digest bot token and chat ID are required")
	}

	if err := b.rateLimiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	b.log.Debug().Str("url", b.cfg.FeedURL).Msg("Fetching RSS feed")

	feed, err := b.parser.ParseURLWithContext(b.cfg.FeedURL, ctx)
	if err != nil {
		return fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	items := feed.Items
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	if len(items) == 0 {
		b.log.Info().Msg("No items in RSS feed, skipping digest")
		return nil
	}

	message := FormatItems(items)

	err = b.sender.SendTelegram(ctx, notify.TelegramParams{
		BotToken: b.cfg.BotToken,
		ChatID:   b.cfg.ChatID,
		TopicID:  b.cfg.TopicID,
	}, message)
	if err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}

	b.log.Info().
		Str("feed", feed.Title).
		Int("items", len(items)).
		Msg("Digest sent")

	return nil
}

// FormatItems renders feed items as a numbered HTML list for Telegram
func FormatItems(items []*gofeed.Item) string {
	if len(items) == 0 {
		return "📰 No news today"
	}

	var b strings.Builder
	b.WriteString("📰 <b>Daily AI News</b>\n\n")

	for i, item := range items {
		if item.Title == "" {
			continue
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "<b>%d.</b> <b><a href=\"%s\">%s</a></b>\n\n", i+1, item.Link, item.Title)
		} else {
			fmt.Fprintf(&b, "<b>%d.</b> <b>%s</b>\n\n", i+1, item.Title)
		}
	}

	return strings.TrimSpace(b.String())
}
