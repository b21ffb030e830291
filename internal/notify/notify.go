package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/pkg/logger"
	"github.com/x-monitor/pkg/ratelimit"
)

// tagPattern matches markup tags for channels that only accept plain text
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Sender delivers channel-agnostic messages to configured notification
// channels. Call sites never branch on channel type; the dispatch lives
// entirely in Send.
type Sender struct {
	httpClient      *http.Client
	rateLimiter     *ratelimit.MultiLimiter
	log             *logger.Logger
	telegramBaseURL string
}

// NewSender creates a new notification sender
func NewSender(limiter *ratelimit.MultiLimiter, log *logger.Logger) *Sender {
	return &Sender{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimiter:     limiter,
		log:             log.WithComponent("notify"),
		telegramBaseURL: "https://api.telegram.org",
	}
}

// Send delivers message to the destination described by config. The message
// may carry the restricted Telegram HTML subset; every other channel gets a
// plain-text copy with tags stripped. A non-2xx acknowledgment or transport
// error is returned with the upstream status and body for diagnostics.
func (s *Sender) Send(ctx context.Context, config *models.NotificationConfig, message string) error {
	if err := s.rateLimiter.Wait(ctx, ratelimit.LimiterChannel); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	switch config.ChannelType {
	case models.ChannelTelegram:
		params := TelegramParams{
			BotToken: config.Params.String("botToken"),
			ChatID:   config.Params.String("chatId"),
			TopicID:  config.Params.Int("topicId"),
		}
		return s.SendTelegram(ctx, params, message)

	case models.ChannelDiscord:
		webhookURL := config.ResolveWebhookURL()
		if webhookURL == "" {
			return fmt.Errorf("discord webhook URL is required")
		}
		return s.post(ctx, "discord", webhookURL, map[string]interface{}{
			"content": stripTags(message),
		})

	case models.ChannelDingTalk:
		webhookURL := config.ResolveWebhookURL()
		if webhookURL == "" {
			return fmt.Errorf("dingtalk webhook URL is required")
		}
		if secret := config.Params.String("secret"); secret != "" {
			signed, err := signDingTalkURL(webhookURL, secret, time.Now())
			if err != nil {
				return fmt.Errorf("failed to sign dingtalk URL: %w", err)
			}
			webhookURL = signed
		}
		return s.post(ctx, "dingtalk", webhookURL, map[string]interface{}{
			"msgtype": "text",
			"text": map[string]interface{}{
				"content": stripTags(message),
			},
		})

	case models.ChannelFeishu:
		webhookURL := config.ResolveWebhookURL()
		if webhookURL == "" {
			return fmt.Errorf("feishu webhook URL is required")
		}
		return s.post(ctx, "feishu", webhookURL, map[string]interface{}{
			"msg_type": "text",
			"content": map[string]interface{}{
				"text": stripTags(message),
			},
		})

	case models.ChannelWebhook:
		webhookURL := config.ResolveWebhookURL()
		if webhookURL == "" {
			return fmt.Errorf("webhook URL is required")
		}
		return s.post(ctx, "webhook", webhookURL, map[string]interface{}{
			"message":   stripTags(message),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})

	default:
		return fmt.Errorf("unsupported channel type: %s", config.ChannelType)
	}
}

// post sends a JSON body and treats anything but a 2xx as failure
func (s *Sender) post(ctx context.Context, channel, targetURL string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s webhook failed: %d %s", channel, resp.StatusCode, string(respBody))
	}

	s.log.WithChannel(channel).Debug().
		Int("status", resp.StatusCode).
		Msg("Notification delivered")

	return nil
}

// signDingTalkURL appends the timestamp and HMAC-SHA256 signature query
// parameters DingTalk expects on secured webhooks. Timestamps are
// single-use, so the signature is recomputed on every call.
func signDingTalkURL(webhookURL, secret string, now time.Time) (string, error) {
	timestamp := now.UnixMilli()

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d\n%s", timestamp, secret)
	sign := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	parsed, err := url.Parse(webhookURL)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("timestamp", strconv.FormatInt(timestamp, 10))
	query.Set("sign", sign)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// stripTags removes markup tags from a message for plain-text channels
func stripTags(message string) string {
	return tagPattern.ReplaceAllString(message, "")
}
