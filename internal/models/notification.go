package models

import (
	"fmt"
	"time"
)

// ChannelType represents a notification delivery protocol
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelDiscord  ChannelType = "discord"
	ChannelDingTalk ChannelType = "dingtalk"
	ChannelFeishu   ChannelType = "feishu"
	ChannelWebhook  ChannelType = "webhook"
)

// ChannelTypes lists every supported delivery protocol
var ChannelTypes = []ChannelType{
	ChannelTelegram,
	ChannelDiscord,
	ChannelDingTalk,
	ChannelFeishu,
	ChannelWebhook,
}

// Valid reports whether t is a known channel type
func (t ChannelType) Valid() bool {
	for _, known := range ChannelTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NotificationConfig represents one configured delivery destination.
//
// Params holds the channel-specific parameter bag:
//   - telegram: botToken, chatId, optional topicId
//   - dingtalk: webhookUrl, optional secret
//   - discord/feishu/webhook: webhookUrl
//
// WebhookURL is a flattened convenience copy for the non-telegram types;
// Params wins when both are set.
type NotificationConfig struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	UserID      string      `gorm:"index;not null" json:"user_id"`
	Name        string      `gorm:"not null" json:"name"`
	ChannelType ChannelType `gorm:"not null" json:"channel_type"`
	WebhookURL  string      `json:"webhook_url"`
	Params      JSON        `gorm:"type:json" json:"params"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// ResolveWebhookURL returns the webhook URL from the parameter bag,
// falling back to the flattened column
func (c *NotificationConfig) ResolveWebhookURL() string {
	if url := c.Params.String("webhookUrl"); url != "" {
		return url
	}
	return c.WebhookURL
}

// Validate checks that the parameter bag matches the channel type shape
func (c *NotificationConfig) Validate() error {
	if !c.ChannelType.Valid() {
		return fmt.Errorf("unsupported channel type: %s", c.ChannelType)
	}
	switch c.ChannelType {
	case ChannelTelegram:
		if c.Params.String("botToken") == "" || c.Params.String("chatId") == "" {
			return fmt.Errorf("telegram config requires botToken and chatId")
		}
	default:
		if c.ResolveWebhookURL() == "" {
			return fmt.Errorf("%s config requires a webhook URL", c.ChannelType)
		}
	}
	return nil
}
