package digest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-monitor/internal/config"
	"github.com/x-monitor/internal/notify"
	"github.com/x-monitor/pkg/logger"
	"github.com/x-monitor/pkg/ratelimit"
)

func TestFormatItems(t *testing.T) {
	items := []*gofeed.Item{
		{Title: "Model launch", Link: "https://example.com/launch"},
		{Title: "No link entry"},
		{Title: ""},
	}

	out := FormatItems(items)

	assert.Contains(t, out, "📰 <b>Daily AI News</b>")
	assert.Contains(t, out, `<b>1.</b> <b><a href="https://example.com/launch">Model launch</a></b>`)
	assert.Contains(t, out, "<b>2.</b> <b>No link entry</b>")
	assert.NotContains(t, out, "<b>3.</b>")
}

func TestFormatItemsEmpty(t *testing.T) {
	assert.Equal(t, "📰 No news today", FormatItems(nil))
}

func TestRunRequiresCredentials(t *testing.T) {
	limiter := ratelimit.NewDefaultLimiter()
	log := logger.New(logger.Config{Level: "disabled"})
	sender := notify.NewSender(limiter, log)

	b := New(config.DigestConfig{FeedURL: "https://example.com/rss"}, sender, limiter, log)
	err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token")
}

func TestRunSkipsEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`))
	}))
	defer srv.Close()

	limiter := ratelimit.NewDefaultLimiter()
	log := logger.New(logger.Config{Level: "disabled"})
	sender := notify.NewSender(limiter, log)

	b := New(config.DigestConfig{
		FeedURL:  srv.URL,
		BotToken: "t",
		ChatID:   "c",
	}, sender, limiter, log)

	// An empty feed is not an error and nothing is sent
	require.NoError(t, b.Run(context.Background()))
}
