package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/x-monitor/internal/models"
)

func TestFormatTweet(t *testing.T) {
	tweet := &models.Tweet{
		ID:        "1845316574836912129",
		Text:      "Claim window opens tomorrow",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	user := &models.TwitterUser{Username: "alice", Name: "Alice"}

	msg := FormatTweet(tweet, user)

	assert.Contains(t, msg, "<b>Alice</b>")
	assert.Contains(t, msg, "@alice")
	assert.Contains(t, msg, "Claim window opens tomorrow")
	assert.Contains(t, msg, "2 hours ago")
	assert.Contains(t, msg, "https://twitter.com/alice/status/1845316574836912129")
}

func TestFormatTweetOldTweetSkipsRelativeTime(t *testing.T) {
	tweet := &models.Tweet{
		ID:        "100",
		Text:      "old news",
		CreatedAt: time.Now().Add(-30 * 24 * time.Hour),
	}
	user := &models.TwitterUser{Username: "alice", Name: "Alice"}

	msg := FormatTweet(tweet, user)

	assert.NotContains(t, msg, "ago")
	assert.Contains(t, msg, "<code>")
}

func TestFormatTweetUnknownUser(t *testing.T) {
	tweet := &models.Tweet{ID: "100", Text: "hello"}

	msg := FormatTweet(tweet, &models.TwitterUser{})

	assert.Contains(t, msg, "@Unknown")
	assert.Contains(t, msg, "https://twitter.com/Unknown/status/100")
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"just now", 30 * time.Second, "just now"},
		{"one minute", 90 * time.Second, "1 minute ago"},
		{"minutes", 5 * time.Minute, "5 minutes ago"},
		{"one hour", 61 * time.Minute, "1 hour ago"},
		{"hours", 5 * time.Hour, "5 hours ago"},
		{"one day", 25 * time.Hour, "1 day ago"},
		{"days", 3 * 24 * time.Hour, "3 days ago"},
		{"week or older", 8 * 24 * time.Hour, ""},
		{"future timestamp", -time.Minute, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relativeTime(tt.age))
		})
	}
}
