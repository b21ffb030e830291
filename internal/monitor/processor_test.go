package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "disabled"})
}

func strPtr(s string) *string {
	return &s
}

type fakeProvider struct {
	tweets []models.Tweet
	author *models.TwitterUser
	err    error
}

func (f *fakeProvider) GetUserTweets(ctx context.Context, restID string, count int) ([]models.Tweet, *models.TwitterUser, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.tweets, f.author, nil
}

type fakeClassifier struct {
	mu      sync.Mutex
	verdict func(tweet *models.Tweet) bool
	seen    []string
}

func (f *fakeClassifier) IsAirdropRelated(ctx context.Context, tweet *models.Tweet) bool {
	f.mu.Lock()
	f.seen = append(f.seen, tweet.ID)
	f.mu.Unlock()
	if f.verdict == nil {
		return true
	}
	return f.verdict(tweet)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	failWhen func(message string) bool
}

func (f *fakeNotifier) Send(ctx context.Context, config *models.NotificationConfig, message string) error {
	if f.failWhen != nil && f.failWhen(message) {
		return errors.New("delivery refused")
	}
	f.mu.Lock()
	f.messages = append(f.messages, message)
	f.mu.Unlock()
	return nil
}

type fakeCursorStore struct {
	mu      sync.Mutex
	updates map[uint]string
	err     error
}

func newFakeCursorStore() *fakeCursorStore {
	return &fakeCursorStore{updates: make(map[uint]string)}
}

func (f *fakeCursorStore) UpdateLastTweetID(ctx context.Context, id uint, tweetID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.updates[id] = tweetID
	f.mu.Unlock()
	return nil
}

func testConfig() *models.NotificationConfig {
	return &models.NotificationConfig{
		ID:          1,
		UserID:      "u1",
		Name:        "hooks",
		ChannelType: models.ChannelWebhook,
		WebhookURL:  "https://example.com/hook",
	}
}

func testTarget(cursor *string) *models.MonitorTarget {
	cfg := testConfig()
	return &models.MonitorTarget{
		ID:                   7,
		UserID:               "u1",
		XHandle:              "alice",
		Name:                 "Alice",
		Status:               models.TargetStatusActive,
		RestID:               "42",
		LastTweetID:          cursor,
		NotificationConfigID: &cfg.ID,
		NotificationConfig:   cfg,
	}
}

func tweetAt(id string, age time.Duration, marker *string) models.Tweet {
	return models.Tweet{
		ID:                id,
		Text:              "tweet " + id,
		CreatedAt:         time.Now().Add(-age),
		AuthorID:          "42",
		InReplyToStatusID: marker,
	}
}

func TestProcessTargetSkipsWithoutConfig(t *testing.T) {
	provider := &fakeProvider{err: errors.New("must not be called")}
	store := newFakeCursorStore()
	p := NewProcessor(provider, &fakeClassifier{}, &fakeNotifier{}, store, 10, testLogger())

	target := testTarget(nil)
	target.NotificationConfig = nil

	result, err := p.ProcessTarget(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TweetsSent)
	assert.Empty(t, store.updates)
}

func TestProcessTargetMissingRestID(t *testing.T) {
	p := NewProcessor(&fakeProvider{}, &fakeClassifier{}, &fakeNotifier{}, newFakeCursorStore(), 10, testLogger())

	target := testTarget(nil)
	target.RestID = ""

	_, err := p.ProcessTarget(context.Background(), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rest_id")
}

func TestProcessTargetFetchErrorLeavesCursor(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream 500")}
	store := newFakeCursorStore()
	p := NewProcessor(provider, &fakeClassifier{}, &fakeNotifier{}, store, 10, testLogger())

	target := testTarget(strPtr("1000"))

	_, err := p.ProcessTarget(context.Background(), target)
	require.Error(t, err)
	assert.Empty(t, store.updates)
	assert.Equal(t, "1000", *target.LastTweetID)
}

func TestProcessTargetFirstCycleBackfill(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{
			tweetAt("103", 1*time.Hour, nil),
			tweetAt("102", 2*time.Hour, nil),
			tweetAt("101", 3*time.Hour, nil),
		},
		author: &models.TwitterUser{RestID: "42", Username: "alice", Name: "Alice"},
	}
	classifier := &fakeClassifier{}
	notifier := &fakeNotifier{}
	store := newFakeCursorStore()
	p := NewProcessor(provider, classifier, notifier, store, 10, testLogger())

	target := testTarget(nil)

	result, err := p.ProcessTarget(context.Background(), target)
	require.NoError(t, err)

	// Unset cursor means the whole window is new
	assert.Len(t, classifier.seen, 3)
	assert.Equal(t, 3, result.TweetsSent)
	assert.Equal(t, "103", store.updates[7])
	assert.Equal(t, "103", *target.LastTweetID)
}

func TestProcessTargetExcludesRepliesAndRetweets(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{
			tweetAt("105", 1*time.Hour, nil),
			tweetAt("104", 2*time.Hour, strPtr("99")),                 // reply, known parent
			tweetAt("103", 3*time.Hour, strPtr("")),                   // reply, unknown parent
			tweetAt("102", 4*time.Hour, strPtr(models.RetweetMarker)), // retweet
			tweetAt("101", 5*time.Hour, nil),
		},
	}
	classifier := &fakeClassifier{}
	notifier := &fakeNotifier{}
	store := newFakeCursorStore()
	p := NewProcessor(provider, classifier, notifier, store, 10, testLogger())

	result, err := p.ProcessTarget(context.Background(), testTarget(nil))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"105", "101"}, classifier.seen)
	assert.Equal(t, 2, result.TweetsSent)
	assert.Equal(t, "105", store.updates[7])
}

func TestProcessTargetCursorWindow(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{
			tweetAt("1003", 1*time.Hour, nil),
			tweetAt("1002", 2*time.Hour, nil),
			tweetAt("1001", 3*time.Hour, strPtr(models.RetweetMarker)),
			tweetAt("999", 4*time.Hour, nil),
		},
	}
	classifier := &fakeClassifier{}
	notifier := &fakeNotifier{}
	store := newFakeCursorStore()
	p := NewProcessor(provider, classifier, notifier, store, 10, testLogger())

	target := testTarget(strPtr("1000"))

	result, err := p.ProcessTarget(context.Background(), target)
	require.NoError(t, err)

	// 999 is behind the cursor, 1001 is a retweet
	assert.ElementsMatch(t, []string{"1003", "1002"}, classifier.seen)
	assert.Equal(t, 2, result.TweetsSent)
	assert.Equal(t, "1003", store.updates[7])
}

func TestProcessTargetStaleWindowDoesNotRegressCursor(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{tweetAt("999", time.Hour, nil)},
	}
	classifier := &fakeClassifier{}
	store := newFakeCursorStore()
	p := NewProcessor(provider, classifier, &fakeNotifier{}, store, 10, testLogger())

	target := testTarget(strPtr("1000"))

	result, err := p.ProcessTarget(context.Background(), target)
	require.NoError(t, err)

	// Everything fetched is behind the cursor: nothing classified, nothing
	// sent, and no cursor write at all
	assert.Equal(t, 0, result.TweetsSent)
	assert.Empty(t, classifier.seen)
	assert.Empty(t, store.updates)
	assert.Equal(t, "1000", *target.LastTweetID)
}

func TestProcessTargetCursorIsMaxIDNotNewestTimestamp(t *testing.T) {
	// Id order and timestamp order disagree: the higher id carries the
	// older created_at
	provider := &fakeProvider{
		tweets: []models.Tweet{
			tweetAt("1002", 1*time.Hour, nil),
			tweetAt("1003", 2*time.Hour, nil),
		},
	}
	classifier := &fakeClassifier{}
	store := newFakeCursorStore()
	p := NewProcessor(provider, classifier, &fakeNotifier{}, store, 10, testLogger())

	target := testTarget(nil)

	result, err := p.ProcessTarget(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TweetsSent)
	assert.Equal(t, "1003", store.updates[7])
	assert.Equal(t, "1003", *target.LastTweetID)
}

func TestProcessTargetCursorAdvancesWhenNothingRelevant(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{tweetAt("200", time.Hour, nil)},
	}
	classifier := &fakeClassifier{verdict: func(*models.Tweet) bool { return false }}
	notifier := &fakeNotifier{}
	store := newFakeCursorStore()
	p := NewProcessor(provider, classifier, notifier, store, 10, testLogger())

	target := testTarget(strPtr("100"))

	result, err := p.ProcessTarget(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TweetsSent)
	assert.Empty(t, notifier.messages)
	assert.Equal(t, "200", store.updates[7])
}

func TestProcessTargetCursorStoreErrorIsNotFatal(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{tweetAt("200", time.Hour, nil)},
	}
	store := newFakeCursorStore()
	store.err = errors.New("disk full")
	p := NewProcessor(provider, &fakeClassifier{}, &fakeNotifier{}, store, 10, testLogger())

	target := testTarget(strPtr("100"))

	result, err := p.ProcessTarget(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TweetsSent)

	// In-memory cursor must not advance past a failed write
	assert.Equal(t, "100", *target.LastTweetID)
}

func TestProcessTargetPartialDeliveryFailure(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{
			tweetAt("202", 1*time.Hour, nil),
			tweetAt("201", 2*time.Hour, nil),
		},
	}
	notifier := &fakeNotifier{
		failWhen: func(message string) bool { return strings.Contains(message, "tweet 201") },
	}
	store := newFakeCursorStore()
	p := NewProcessor(provider, &fakeClassifier{}, notifier, store, 10, testLogger())

	result, err := p.ProcessTarget(context.Background(), testTarget(nil))
	require.NoError(t, err)

	assert.Equal(t, 1, result.TweetsSent)
	assert.Equal(t, "202", store.updates[7])
}

func TestProcessTargetAuthorFallback(t *testing.T) {
	provider := &fakeProvider{
		tweets: []models.Tweet{tweetAt("300", time.Hour, nil)},
		author: nil,
	}
	notifier := &fakeNotifier{}
	p := NewProcessor(provider, &fakeClassifier{}, notifier, newFakeCursorStore(), 10, testLogger())

	_, err := p.ProcessTarget(context.Background(), testTarget(nil))
	require.NoError(t, err)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "@alice")
	assert.Contains(t, notifier.messages[0], "Alice")
}

func TestCompareTweetIDs(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"numeric greater", "1000", "999", 1},
		{"numeric less", "999", "1000", -1},
		{"equal", "1000", "1000", 0},
		{"beyond float64 precision", "1845316574836912129", "1845316574836912128", 1},
		{"non-numeric falls back to string", "abc", "abd", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareTweetIDs(tt.a, tt.b)
			switch {
			case tt.want > 0:
				assert.Positive(t, got)
			case tt.want < 0:
				assert.Negative(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}
