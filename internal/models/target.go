package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TargetStatus represents the current state of a monitor target
type TargetStatus string

const (
	TargetStatusActive TargetStatus = "active"
	TargetStatusPaused TargetStatus = "paused"
)

// JSON is a custom type for storing arbitrary JSON data
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}
}

// String returns the string value stored under key, or "" when absent.
// JSON numbers stored for string-ish fields (e.g. a numeric chat id) are
// formatted back to their string form.
func (j JSON) String(key string) string {
	switch v := j[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Int returns the integer value stored under key, accepting both JSON
// numbers and numeric strings. Returns 0 when absent or unparseable.
func (j JSON) Int(key string) int {
	switch v := j[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// MonitorTarget represents one tracked X (Twitter) account.
//
// LastTweetID is the dedup cursor: the highest tweet id already processed
// for this target. It only ever advances (by the platform's id ordering)
// and is mutated exclusively by the monitor pipeline.
type MonitorTarget struct {
	ID                   uint                `gorm:"primaryKey" json:"id"`
	UserID               string              `gorm:"index;uniqueIndex:idx_user_handle;not null" json:"user_id"`
	XHandle              string              `gorm:"uniqueIndex:idx_user_handle;not null" json:"x_handle"`
	Name                 string              `gorm:"not null" json:"name"`
	Status               TargetStatus        `gorm:"default:'active';index" json:"status"`
	RestID               string              `gorm:"index" json:"rest_id"` // stable platform identifier, resolved at creation
	LastTweetID          *string             `json:"last_tweet_id"`
	NotificationConfigID *uint               `gorm:"index" json:"notification_config_id"`
	NotificationConfig   *NotificationConfig `gorm:"foreignKey:NotificationConfigID" json:"notification_config,omitempty"`
	CreatedAt            time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// IsActive reports whether the target should be picked up by fleet scans
func (t *MonitorTarget) IsActive() bool {
	return t.Status == TargetStatusActive
}
