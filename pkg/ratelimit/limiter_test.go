package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiLimiterWaitUnknownName(t *testing.T) {
	m := NewMultiLimiter()
	err := m.Wait(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestMultiLimiterAllow(t *testing.T) {
	m := NewMultiLimiter()
	m.AddLimiter("svc", 1, 2)

	assert.True(t, m.Allow("svc"))
	assert.True(t, m.Allow("svc"))
	// Burst of 2 exhausted
	assert.False(t, m.Allow("svc"))

	assert.False(t, m.Allow("unknown"))
}

func TestNewLimiterCustomRates(t *testing.T) {
	m := NewLimiter(Rates{
		TwitterPer15Min:    900,
		AnthropicPerMinute: 120,
		ChannelPerSecond:   2,
	})

	assert.InDelta(t, 1.0, float64(m.limiters[LimiterTwitter].Limit()), 1e-9)
	assert.InDelta(t, 2.0, float64(m.limiters[LimiterAnthropic].Limit()), 1e-9)
	assert.InDelta(t, 2.0, float64(m.limiters[LimiterChannel].Limit()), 1e-9)
}

func TestNewLimiterZeroFallsBackToDefaults(t *testing.T) {
	m := NewLimiter(Rates{})

	assert.InDelta(t, 300.0/(15*60), float64(m.limiters[LimiterTwitter].Limit()), 1e-9)
	assert.InDelta(t, 0.5, float64(m.limiters[LimiterAnthropic].Limit()), 1e-9)
	assert.InDelta(t, 5.0, float64(m.limiters[LimiterChannel].Limit()), 1e-9)
	assert.InDelta(t, 1.0, float64(m.limiters[LimiterRSS].Limit()), 1e-9)
}

func TestDefaultLimiterHasAllServices(t *testing.T) {
	m := NewDefaultLimiter()
	for _, name := range []string{LimiterTwitter, LimiterAnthropic, LimiterChannel, LimiterRSS} {
		assert.True(t, m.Allow(name), name)
	}
}
