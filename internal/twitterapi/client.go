package twitterapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/x-monitor/internal/config"
	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/pkg/logger"
	"github.com/x-monitor/pkg/ratelimit"
)

// ErrUserNotFound is returned when a handle does not resolve to a real account
var ErrUserNotFound = errors.New("user not found")

// Client handles RapidAPI Twitter/X API requests
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	apiHost     string
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a new Twitter API client
func NewClient(cfg config.TwitterConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	host := cfg.APIHost
	if host == "" {
		host = "twitter241.p.rapidapi.com"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     "https://" + host,
		apiKey:      cfg.APIKey,
		apiHost:     host,
		rateLimiter: limiter,
		log:         log.WithComponent("twitter"),
	}
}

// do performs a GET request with RapidAPI authentication headers
func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("twitter API key is not configured")
	}

	// Wait for rate limiter
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterTwitter); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)

	c.log.Debug().
		Str("path", path).
		Msg("Making Twitter API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Msg("Twitter API response")

	return resp, nil
}

// VerifyUser resolves a handle to its stable rest_id. Handles that do not
// resolve to a real account yield ErrUserNotFound.
func (c *Client) VerifyUser(ctx context.Context, username string) (*models.TwitterUser, error) {
	resp, err := c.do(ctx, "/user?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to verify user: %s - %s", resp.Status, string(body))
	}

	user, err := parseUserResponse(body, username)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("username", user.Username).
		Str("rest_id", user.RestID).
		Msg("User verified")

	return user, nil
}

// GetUserTweets fetches up to count recent tweets for the account identified
// by restID. Provider-specific reply/retweet signals are normalized onto the
// returned tweets. The second return value is the tweet author, when the
// timeline carried one.
func (c *Client) GetUserTweets(ctx context.Context, restID string, count int) ([]models.Tweet, *models.TwitterUser, error) {
	if restID == "" {
		return nil, nil, fmt.Errorf("rest_id is required")
	}

	params := url.Values{}
	params.Set("user", restID)
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}

	resp, err := c.do(ctx, "/user-tweets?"+params.Encode())
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read timeline response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("failed to get tweets: %s - %s", resp.Status, string(body))
	}

	tweets, users := parseTimelineResponse(body, restID)

	c.log.Debug().
		Str("rest_id", restID).
		Int("tweets", len(tweets)).
		Msg("Fetched user tweets")

	var author *models.TwitterUser
	if len(users) > 0 {
		author = &users[0]
	}
	return tweets, author, nil
}
