package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/pkg/logger"
)

// TweetProvider fetches recent tweets for a stable account identifier
type TweetProvider interface {
	GetUserTweets(ctx context.Context, restID string, count int) ([]models.Tweet, *models.TwitterUser, error)
}

// Classifier decides whether a tweet is relevant. Implementations are
// fail-closed: any provider failure yields false, never an error.
type Classifier interface {
	IsAirdropRelated(ctx context.Context, tweet *models.Tweet) bool
}

// Notifier delivers a formatted message to a configured channel
type Notifier interface {
	Send(ctx context.Context, config *models.NotificationConfig, message string) error
}

// CursorStore persists the per-target dedup cursor
type CursorStore interface {
	UpdateLastTweetID(ctx context.Context, id uint, tweetID string) error
}

// Processor runs the per-target unit of work: fetch, dedup, classify,
// deliver, advance the cursor.
type Processor struct {
	provider   TweetProvider
	classifier Classifier
	notifier   Notifier
	store      CursorStore
	fetchCount int
	log        *logger.Logger
}

// NewProcessor creates a new target processor
func NewProcessor(
	provider TweetProvider,
	classifier Classifier,
	notifier Notifier,
	store CursorStore,
	fetchCount int,
	log *logger.Logger,
) *Processor {
	if fetchCount <= 0 {
		fetchCount = 10
	}
	return &Processor{
		provider:   provider,
		classifier: classifier,
		notifier:   notifier,
		store:      store,
		fetchCount: fetchCount,
		log:        log.WithComponent("processor"),
	}
}

// Result is the per-target outcome of one cycle
type Result struct {
	TweetsSent int
}

// ProcessTarget checks one monitor target for new tweets and delivers the
// relevant ones.
//
// The cursor advance is independent of the classification outcome:
// LastTweetID moves to the highest fetched id even when classification
// fails or nothing is relevant, so a classifier outage can never cause the
// same window to be re-fetched and re-classified forever. The advance is
// forward-only by id ordering; a window of already-seen or out-of-order
// ids never moves the cursor backward. A fetch failure leaves the cursor
// untouched and the next cycle retries from the same point.
func (p *Processor) ProcessTarget(ctx context.Context, target *models.MonitorTarget) (*Result, error) {
	log := p.log.WithTarget(target.XHandle, target.Name)

	// Monitoring without delivery is a valid, intentional state
	config := target.NotificationConfig
	if config == nil {
		log.Debug().Msg("No notification config attached, skipping delivery")
		return &Result{}, nil
	}

	if target.RestID == "" {
		return nil, fmt.Errorf("rest_id is missing")
	}

	tweets, author, err := p.provider.GetUserTweets(ctx, target.RestID, p.fetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get tweets: %w", err)
	}
	if len(tweets) == 0 {
		return &Result{}, nil
	}

	// Newest first for delivery order
	sorted := make([]models.Tweet, len(tweets))
	copy(sorted, tweets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	// The cursor candidate is the maximum id in the window. Timestamp
	// order and id order can disagree, so the time-sorted head is not it.
	latestTweetID := sorted[0].ID
	for _, tweet := range sorted[1:] {
		if compareTweetIDs(tweet.ID, latestTweetID) > 0 {
			latestTweetID = tweet.ID
		}
	}

	// Tweets past the cursor. An unset cursor means the first-ever cycle:
	// the whole fetch window is treated as new (bounded backfill).
	var newTweets []models.Tweet
	for _, tweet := range sorted {
		if target.LastTweetID == nil || compareTweetIDs(tweet.ID, *target.LastTweetID) > 0 {
			newTweets = append(newTweets, tweet)
		}
	}

	// Replies and retweets are never eligible for delivery
	var candidates []models.Tweet
	for _, tweet := range newTweets {
		if tweet.IsOriginal() {
			candidates = append(candidates, tweet)
		}
	}

	log.Debug().
		Int("fetched", len(tweets)).
		Int("new", len(newTweets)).
		Int("candidates", len(candidates)).
		Msg("Computed candidate tweets")

	// Classify candidates concurrently; one tweet's verdict never blocks
	// or aborts a sibling's
	relevant := p.classifyAll(ctx, candidates)

	// Cursor advance happens here regardless of classification outcome,
	// but only forward: a stale window must never regress the cursor.
	// Errors are logged, not retried; the next cycle re-fetches the window.
	if target.LastTweetID == nil || compareTweetIDs(latestTweetID, *target.LastTweetID) > 0 {
		if err := p.store.UpdateLastTweetID(ctx, target.ID, latestTweetID); err != nil {
			log.Error().
				Err(err).
				Str("last_tweet_id", latestTweetID).
				Msg("Failed to update last tweet id")
		} else {
			target.LastTweetID = &latestTweetID
		}
	}

	if len(relevant) == 0 {
		return &Result{}, nil
	}

	if author == nil {
		author = &models.TwitterUser{
			RestID:   target.RestID,
			Username: target.XHandle,
			Name:     target.Name,
		}
	}

	sent := p.deliverAll(ctx, config, relevant, author, log)

	log.Info().
		Int("relevant", len(relevant)).
		Int("sent", sent).
		Msg("Target processed")

	return &Result{TweetsSent: sent}, nil
}

// classifyAll fans the classifier out over all candidates and returns the
// relevant ones in their original order
func (p *Processor) classifyAll(ctx context.Context, candidates []models.Tweet) []models.Tweet {
	verdicts := make([]bool, len(candidates))

	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdicts[i] = p.classifier.IsAirdropRelated(ctx, &candidates[i])
		}(i)
	}
	wg.Wait()

	var relevant []models.Tweet
	for i, ok := range verdicts {
		if ok {
			relevant = append(relevant, candidates[i])
		}
	}
	return relevant
}

// deliverAll fans delivery out over all relevant tweets and returns the
// number of successful deliveries. One failed delivery never blocks or
// rolls back a sibling's.
func (p *Processor) deliverAll(
	ctx context.Context,
	config *models.NotificationConfig,
	tweets []models.Tweet,
	author *models.TwitterUser,
	log *logger.Logger,
) int {
	var mu sync.Mutex
	var wg sync.WaitGroup
	sent := 0

	for i := range tweets {
		wg.Add(1)
		go func(tweet *models.Tweet) {
			defer wg.Done()
			message := FormatTweet(tweet, author)
			if err := p.notifier.Send(ctx, config, message); err != nil {
				log.WithTweetID(tweet.ID).Error().
					Err(err).
					Str("channel_type", string(config.ChannelType)).
					Msg("Failed to send notification")
				return
			}
			mu.Lock()
			sent++
			mu.Unlock()
		}(&tweets[i])
	}
	wg.Wait()

	return sent
}

// compareTweetIDs compares two tweet ids as arbitrary-precision integers,
// falling back to string comparison when either fails to parse. Tweet ids
// exceed float64 precision, so they are never compared as native numbers.
func compareTweetIDs(a, b string) int {
	ia, okA := new(big.Int).SetString(a, 10)
	ib, okB := new(big.Int).SetString(b, 10)
	if okA && okB {
		return ia.Cmp(ib)
	}
	return strings.Compare(a, b)
}
