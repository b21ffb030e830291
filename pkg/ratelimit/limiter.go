package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages multiple rate limiters for different services
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter for a service
// requestsPerSecond: the rate limit (e.g., 10 means 10 requests per second)
// burst: maximum burst size
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the limiter allows an event
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("limiter %s not found", name)
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (m *MultiLimiter) Allow(name string) bool {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	return limiter.Allow()
}

// Default rate limiter names
const (
	LimiterTwitter   = "twitter"
	LimiterAnthropic = "anthropic"
	LimiterChannel   = "channel"
	LimiterRSS       = "rss"
)

// Rates holds the per-service request budgets. Zero or negative values
// fall back to the defaults.
type Rates struct {
	TwitterPer15Min    int
	AnthropicPerMinute int
	ChannelPerSecond   int
}

// NewLimiter creates a limiter from the given request budgets
func NewLimiter(r Rates) *MultiLimiter {
	if r.TwitterPer15Min <= 0 {
		r.TwitterPer15Min = 300
	}
	if r.AnthropicPerMinute <= 0 {
		r.AnthropicPerMinute = 30
	}
	if r.ChannelPerSecond <= 0 {
		r.ChannelPerSecond = 5
	}

	m := NewMultiLimiter()

	// RapidAPI Twitter: spread the 15-minute budget evenly, burst 20
	m.AddLimiter(LimiterTwitter, float64(r.TwitterPer15Min)/(15*60), 20)

	// Anthropic: per-minute budget, burst 5
	m.AddLimiter(LimiterAnthropic, float64(r.AnthropicPerMinute)/60, 5)

	// Notification channels: Telegram caps bots around 30 msg/s globally,
	// webhooks are more forgiving - burst 10
	m.AddLimiter(LimiterChannel, float64(r.ChannelPerSecond), 10)

	// RSS: No strict limit, but be polite - 1 per second, burst 5
	m.AddLimiter(LimiterRSS, 1, 5)

	return m
}

// NewDefaultLimiter creates a limiter with default rate limits
func NewDefaultLimiter() *MultiLimiter {
	return NewLimiter(Rates{})
}
