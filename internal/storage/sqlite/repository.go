package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && dsn != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.NotificationConfig{},
		&models.MonitorTarget{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Monitor target operations

func (r *Repository) CreateTarget(ctx context.Context, target *models.MonitorTarget) error {
	return r.db.WithContext(ctx).Create(target).Error
}

func (r *Repository) GetTargetByID(ctx context.Context, id uint) (*models.MonitorTarget, error) {
	var target models.MonitorTarget
	if err := r.db.WithContext(ctx).Preload("NotificationConfig").First(&target, id).Error; err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *Repository) GetTargetByUserAndHandle(ctx context.Context, userID, handle string) (*models.MonitorTarget, error) {
	var target models.MonitorTarget
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND x_handle = ?", userID, handle).
		First(&target).Error; err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *Repository) ListTargets(ctx context.Context, userID string) ([]*models.MonitorTarget, error) {
	var targets []*models.MonitorTarget
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("NotificationConfig").
		Order("created_at DESC").
		Find(&targets).Error; err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *Repository) ListActiveTargetsWithConfig(ctx context.Context) ([]*models.MonitorTarget, error) {
	var targets []*models.MonitorTarget
	if err := r.db.WithContext(ctx).
		Where("status = ? AND notification_config_id IS NOT NULL", models.TargetStatusActive).
		Preload("NotificationConfig").
		Find(&targets).Error; err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *Repository) UpdateTargetStatus(ctx context.Context, id uint, status models.TargetStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.MonitorTarget{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *Repository) UpdateTargetNotificationConfig(ctx context.Context, id uint, configID *uint) error {
	return r.db.WithContext(ctx).
		Model(&models.MonitorTarget{}).
		Where("id = ?", id).
		Update("notification_config_id", configID).Error
}

func (r *Repository) UpdateLastTweetID(ctx context.Context, id uint, tweetID string) error {
	return r.db.WithContext(ctx).
		Model(&models.MonitorTarget{}).
		Where("id = ?", id).
		Update("last_tweet_id", tweetID).Error
}

func (r *Repository) DeleteTarget(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.MonitorTarget{}, id).Error
}

// Notification config operations

func (r *Repository) CreateNotificationConfig(ctx context.Context, config *models.NotificationConfig) error {
	return r.db.WithContext(ctx).Create(config).Error
}

func (r *Repository) GetNotificationConfigByID(ctx context.Context, id uint) (*models.NotificationConfig, error) {
	var config models.NotificationConfig
	if err := r.db.WithContext(ctx).First(&config, id).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *Repository) ListNotificationConfigs(ctx context.Context, userID string) ([]*models.NotificationConfig, error) {
	var configs []*models.NotificationConfig
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *Repository) ListTargetsByConfig(ctx context.Context, configID uint) ([]*models.MonitorTarget, error) {
	var targets []*models.MonitorTarget
	if err := r.db.WithContext(ctx).
		Where("notification_config_id = ?", configID).
		Find(&targets).Error; err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *Repository) DeleteNotificationConfig(ctx context.Context, id uint) error {
	bound, err := r.ListTargetsByConfig(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check notification config usage: %w", err)
	}
	if len(bound) > 0 {
		return &storage.ConfigInUseError{ConfigID: id, Targets: bound}
	}
	return r.db.WithContext(ctx).Delete(&models.NotificationConfig{}, id).Error
}
