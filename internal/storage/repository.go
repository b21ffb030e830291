package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/x-monitor/internal/models"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Monitor target operations
	CreateTarget(ctx context.Context, target *models.MonitorTarget) error
	GetTargetByID(ctx context.Context, id uint) (*models.MonitorTarget, error)
	GetTargetByUserAndHandle(ctx context.Context, userID, handle string) (*models.MonitorTarget, error)
	ListTargets(ctx context.Context, userID string) ([]*models.MonitorTarget, error)
	// ListActiveTargetsWithConfig returns every target eligible for a fleet
	// scan: status = active and a non-null notification config reference,
	// with the config preloaded.
	ListActiveTargetsWithConfig(ctx context.Context) ([]*models.MonitorTarget, error)
	UpdateTargetStatus(ctx context.Context, id uint, status models.TargetStatus) error
	UpdateTargetNotificationConfig(ctx context.Context, id uint, configID *uint) error
	// UpdateLastTweetID is the single-row cursor write. Callers treat it as
	// fire-and-forget: errors are logged, not retried.
	UpdateLastTweetID(ctx context.Context, id uint, tweetID string) error
	DeleteTarget(ctx context.Context, id uint) error

	// Notification config operations
	CreateNotificationConfig(ctx context.Context, config *models.NotificationConfig) error
	GetNotificationConfigByID(ctx context.Context, id uint) (*models.NotificationConfig, error)
	ListNotificationConfigs(ctx context.Context, userID string) ([]*models.NotificationConfig, error)
	ListTargetsByConfig(ctx context.Context, configID uint) ([]*models.MonitorTarget, error)
	// DeleteNotificationConfig fails with *ConfigInUseError while any target
	// still references the config. The store does not enforce this natively,
	// so the check lives here.
	DeleteNotificationConfig(ctx context.Context, id uint) error

	// Maintenance
	Close() error
	Migrate() error
}

// ConfigInUseError is returned when deleting a notification config that is
// still referenced by monitor targets
type ConfigInUseError struct {
	ConfigID uint
	Targets  []*models.MonitorTarget
}

func (e *ConfigInUseError) Error() string {
	names := make([]string, 0, len(e.Targets))
	for _, t := range e.Targets {
		names = append(names, fmt.Sprintf("%s (@%s)", t.Name, t.XHandle))
	}
	return fmt.Sprintf("notification config %d is still used by: %s; unlink the targets first",
		e.ConfigID, strings.Join(names, ", "))
}
