package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/x-monitor/internal/ai"
	"github.com/x-monitor/internal/config"
	"github.com/x-monitor/internal/digest"
	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/internal/monitor"
	"github.com/x-monitor/internal/notify"
	"github.com/x-monitor/internal/storage"
	"github.com/x-monitor/internal/storage/sqlite"
	"github.com/x-monitor/internal/twitterapi"
	"github.com/x-monitor/pkg/logger"
	"github.com/x-monitor/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xmonitor",
		Short: "KOL tweet monitor with AI relevance filtering",
		Long: `Monitors X (Twitter) accounts for new tweets, filters them for
airdrop relevance with Claude AI, and delivers matches to notification
channels.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(targetsCmd())
	rootCmd.AddCommand(configsCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(digestCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// newLimiter builds the rate limiter from the loaded config
func newLimiter() *ratelimit.MultiLimiter {
	return ratelimit.NewLimiter(ratelimit.Rates{
		TwitterPer15Min:    cfg.RateLimit.TwitterRequestsPer15Min,
		AnthropicPerMinute: cfg.RateLimit.AnthropicRequestsPerMinute,
		ChannelPerSecond:   cfg.RateLimit.ChannelRequestsPerSecond,
	})
}

// buildScanner wires the full monitoring pipeline for commands that scan
func buildScanner() *monitor.Scanner {
	limiter := newLimiter()
	twitterClient := twitterapi.NewClient(cfg.Twitter, limiter, log)
	aiClient := ai.NewClient(cfg.Anthropic, limiter, log)
	sender := notify.NewSender(limiter, log)

	processor := monitor.NewProcessor(twitterClient, aiClient, sender, repo, cfg.Monitor.FetchCount, log)
	return monitor.NewScanner(processor, repo, log)
}

// ============ TARGET COMMANDS ============

func targetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage monitor targets",
	}

	cmd.AddCommand(targetsAddCmd())
	cmd.AddCommand(targetsListCmd())
	cmd.AddCommand(targetsPauseCmd())
	cmd.AddCommand(targetsResumeCmd())
	cmd.AddCommand(targetsSetConfigCmd())
	cmd.AddCommand(targetsDeleteCmd())
	return cmd
}

func targetsAddCmd() *cobra.Command {
	var userID string
	var name string
	var configID uint

	cmd := &cobra.Command{
		Use:   "add [handle]",
		Short: "Start monitoring an X account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			handle := args[0]

			if existing, err := repo.GetTargetByUserAndHandle(ctx, userID, handle); err == nil && existing != nil {
				return fmt.Errorf("@%s is already being monitored", handle)
			}

			limiter := newLimiter()
			twitterClient := twitterapi.NewClient(cfg.Twitter, limiter, log)

			// The handle must resolve to a real account before anything is
			// stored; its rest_id is the fetch key for every later cycle
			user, err := twitterClient.VerifyUser(ctx, handle)
			if err != nil {
				if errors.Is(err, twitterapi.ErrUserNotFound) {
					return fmt.Errorf("X user @%s not found", handle)
				}
				return fmt.Errorf("failed to verify X user: %w", err)
			}

			var configRef *uint
			if configID > 0 {
				notifConfig, err := repo.GetNotificationConfigByID(ctx, configID)
				if err != nil || notifConfig.UserID != userID {
					return fmt.Errorf("notification config %d not found", configID)
				}
				configRef = &configID
			}

			if name == "" {
				name = user.Name
			}

			target := &models.MonitorTarget{
				UserID:               userID,
				XHandle:              user.Username,
				Name:                 name,
				Status:               models.TargetStatusActive,
				RestID:               user.RestID,
				NotificationConfigID: configRef,
			}
			if err := repo.CreateTarget(ctx, target); err != nil {
				return fmt.Errorf("failed to add monitor target: %w", err)
			}

			fmt.Printf("Now monitoring %s (@%s) [id %d]\n", target.Name, target.XHandle, target.ID)

			// With a channel attached, run the first scan right away so the
			// user sees notifications without waiting for the next cron tick
			if configRef != nil {
				fmt.Println("Running initial scan...")
				scanner := buildScanner()
				scanCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
				defer cancel()

				result, err := scanner.ScanTarget(scanCtx, target.ID)
				if err != nil {
					fmt.Printf("Initial scan failed: %v\n", err)
					return nil
				}
				fmt.Printf("Initial scan done: %d tweet(s) sent\n", result.TweetsSent)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "Owner user id")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the account's name)")
	cmd.Flags().UintVar(&configID, "notify-config", 0, "Notification config id to attach")

	return cmd
}

func targetsListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monitor targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			targets, err := repo.ListTargets(ctx, userID)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Monitor Targets (%d) ===\n\n", len(targets))
			for _, t := range targets {
				fmt.Printf("[%d] %s (@%s) | %s\n", t.ID, t.Name, t.XHandle, t.Status)
				if t.NotificationConfig != nil {
					fmt.Printf("    Channel: %s (%s)\n", t.NotificationConfig.Name, t.NotificationConfig.ChannelType)
				} else {
					fmt.Printf("    Channel: none\n")
				}
				if t.LastTweetID != nil {
					fmt.Printf("    Cursor: %s\n", *t.LastTweetID)
				}
				fmt.Printf("    Added: %s\n", t.CreatedAt.Format(time.RFC1123))
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "Owner user id")

	return cmd
}

func targetsPauseCmd() *cobra.Command {
	return targetStatusCmd("pause", "Pause monitoring for a target", models.TargetStatusPaused)
}

func targetsResumeCmd() *cobra.Command {
	return targetStatusCmd("resume", "Resume monitoring for a target", models.TargetStatusActive)
}

func targetStatusCmd(use, short string, status models.TargetStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [target-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := repo.UpdateTargetStatus(ctx, id, status); err != nil {
				return err
			}

			fmt.Printf("Target %d is now %s\n", id, status)
			return nil
		},
	}
}

func targetsSetConfigCmd() *cobra.Command {
	var configID uint
	var detach bool

	cmd := &cobra.Command{
		Use:   "set-config [target-id]",
		Short: "Attach or detach a target's notification config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			target, err := repo.GetTargetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("target not found: %w", err)
			}

			var configRef *uint
			if !detach {
				if configID == 0 {
					return fmt.Errorf("either --notify-config or --detach is required")
				}
				notifConfig, err := repo.GetNotificationConfigByID(ctx, configID)
				if err != nil || notifConfig.UserID != target.UserID {
					return fmt.Errorf("notification config %d not found", configID)
				}
				configRef = &configID
			}

			if err := repo.UpdateTargetNotificationConfig(ctx, id, configRef); err != nil {
				return err
			}

			if configRef == nil {
				fmt.Printf("Target %d detached from its notification config\n", id)
			} else {
				fmt.Printf("Target %d now delivers to config %d\n", id, configID)
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&configID, "notify-config", 0, "Notification config id to attach")
	cmd.Flags().BoolVar(&detach, "detach", false, "Detach the current notification config")

	return cmd
}

func targetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [target-id]",
		Short: "Stop monitoring a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			target, err := repo.GetTargetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("target not found: %w", err)
			}

			if err := repo.DeleteTarget(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Stopped monitoring %s (@%s)\n", target.Name, target.XHandle)
			return nil
		},
	}
}

// ============ NOTIFICATION CONFIG COMMANDS ============

func configsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Manage notification configs",
	}

	cmd.AddCommand(configsAddCmd())
	cmd.AddCommand(configsListCmd())
	cmd.AddCommand(configsDeleteCmd())
	return cmd
}

func configsAddCmd() *cobra.Command {
	var userID string
	var channelType string
	var botToken string
	var chatID string
	var topicID int
	var webhookURL string
	var secret string

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a notification config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			params := models.JSON{}
			switch models.ChannelType(channelType) {
			case models.ChannelTelegram:
				params["botToken"] = botToken
				params["chatId"] = chatID
				if topicID > 0 {
					params["topicId"] = topicID
				}
			case models.ChannelDingTalk:
				params["webhookUrl"] = webhookURL
				if secret != "" {
					params["secret"] = secret
				}
			default:
				params["webhookUrl"] = webhookURL
			}

			notifConfig := &models.NotificationConfig{
				UserID:      userID,
				Name:        args[0],
				ChannelType: models.ChannelType(channelType),
				WebhookURL:  webhookURL,
				Params:      params,
			}
			if err := notifConfig.Validate(); err != nil {
				return err
			}

			if err := repo.CreateNotificationConfig(ctx, notifConfig); err != nil {
				return fmt.Errorf("failed to create notification config: %w", err)
			}

			fmt.Printf("Created %s config %q [id %d]\n", notifConfig.ChannelType, notifConfig.Name, notifConfig.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "Owner user id")
	cmd.Flags().StringVar(&channelType, "type", "telegram", "Channel type (telegram, discord, dingtalk, feishu, webhook)")
	cmd.Flags().StringVar(&botToken, "bot-token", "", "Telegram bot token")
	cmd.Flags().StringVar(&chatID, "chat-id", "", "Telegram chat id")
	cmd.Flags().IntVar(&topicID, "topic-id", 0, "Telegram forum topic id")
	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Webhook URL for non-telegram channels")
	cmd.Flags().StringVar(&secret, "secret", "", "DingTalk signing secret")

	return cmd
}

func configsListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notification configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			configs, err := repo.ListNotificationConfigs(ctx, userID)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Notification Configs (%d) ===\n\n", len(configs))
			for _, c := range configs {
				fmt.Printf("[%d] %s | %s\n", c.ID, c.Name, c.ChannelType)

				targets, err := repo.ListTargetsByConfig(ctx, c.ID)
				if err == nil && len(targets) > 0 {
					fmt.Printf("    Used by %d target(s)\n", len(targets))
				}
				fmt.Printf("    Created: %s\n", c.CreatedAt.Format(time.RFC1123))
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "Owner user id")

	return cmd
}

func configsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [config-id]",
		Short: "Delete a notification config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := repo.DeleteNotificationConfig(ctx, id); err != nil {
				var inUse *storage.ConfigInUseError
				if errors.As(err, &inUse) {
					return fmt.Errorf("%s", inUse.Error())
				}
				return err
			}

			fmt.Printf("Deleted notification config %d\n", id)
			return nil
		},
	}
}

// ============ SCAN COMMAND ============

func scanCmd() *cobra.Command {
	var targetID uint

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a monitoring scan now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			scanner := buildScanner()

			if targetID > 0 {
				result, err := scanner.ScanTarget(ctx, targetID)
				if err != nil {
					return err
				}
				fmt.Printf("Scan done: %d tweet(s) sent\n", result.TweetsSent)
				return nil
			}

			result, err := scanner.RunCycle(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Scan Summary ===\n")
			fmt.Printf("Targets processed: %d\n", result.Processed)
			fmt.Printf("Tweets sent:       %d\n", result.TweetsSent)
			fmt.Printf("Duration:          %s\n", result.Duration.Round(time.Millisecond))
			if len(result.Errors) > 0 {
				fmt.Printf("Errors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}

	cmd.Flags().UintVar(&targetID, "target", 0, "Scan a single target by id")

	return cmd
}

// ============ DIGEST COMMAND ============

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Send the daily news digest now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			limiter := newLimiter()
			sender := notify.NewSender(limiter, log)
			broadcaster := digest.New(cfg.Digest, sender, limiter, log)

			if err := broadcaster.Run(ctx); err != nil {
				return err
			}

			fmt.Println("Digest sent")
			return nil
		},
	}
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %s", arg)
	}
	return uint(id), nil
}
