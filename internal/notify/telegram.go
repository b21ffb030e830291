package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TelegramParams identifies one Telegram destination. TopicID targets a
// forum topic and is optional.
type TelegramParams struct {
	BotToken string
	ChatID   string
	TopicID  int
}

// telegramPayload is the sendMessage request body. Messages are sent as
// HTML; Telegram accepts a restricted tag subset there.
type telegramPayload struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	DisableNotification   bool   `json:"disable_notification"`
	MessageThreadID       int    `json:"message_thread_id,omitempty"`
}

// telegramResponse is the subset of the Bot API response we inspect
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int `json:"message_id"`
	} `json:"result"`
}

// SendTelegram sends an HTML message through the Telegram Bot API. It is
// exported separately from Send because the daily digest broadcast shares
// this sender without going through a stored NotificationConfig.
func (s *Sender) SendTelegram(ctx context.Context, params TelegramParams, message string) error {
	if params.BotToken == "" || params.ChatID == "" {
		return fmt.Errorf("telegram bot token and chat ID are required")
	}

	payload := telegramPayload{
		ChatID:                params.ChatID,
		Text:                  message,
		ParseMode:             "HTML",
		DisableWebPagePreview: false,
		DisableNotification:   false,
		MessageThreadID:       params.TopicID,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	sendURL := fmt.Sprintf("%s/bot%s/sendMessage", s.telegramBaseURL, params.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var parsed telegramResponse
	_ = json.Unmarshal(respBody, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !parsed.OK {
		if parsed.Description != "" {
			return fmt.Errorf("telegram sendMessage failed: %s", parsed.Description)
		}
		return fmt.Errorf("telegram sendMessage failed: %d %s", resp.StatusCode, string(respBody))
	}

	s.log.Debug().
		Int("message_id", parsed.Result.MessageID).
		Msg("Telegram message delivered")

	return nil
}
