package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/x-monitor/internal/ai"
	"github.com/x-monitor/internal/config"
	"github.com/x-monitor/internal/digest"
	"github.com/x-monitor/internal/monitor"
	"github.com/x-monitor/internal/notify"
	"github.com/x-monitor/internal/server"
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
		Use:   "xmonitor-scheduler",
		Short: "Background scheduler for the X monitor",
		Long: `Runs the scheduled KOL tweet monitoring and daily digest jobs.
This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
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

	log.Info().Msg("Starting X Monitor Scheduler")

	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("Configuration incomplete, some features will be degraded")
	}

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize rate limiter
	limiter := ratelimit.NewLimiter(ratelimit.Rates{
		TwitterPer15Min:    cfg.RateLimit.TwitterRequestsPer15Min,
		AnthropicPerMinute: cfg.RateLimit.AnthropicRequestsPerMinute,
		ChannelPerSecond:   cfg.RateLimit.ChannelRequestsPerSecond,
	})

	// Initialize clients
	twitterClient := twitterapi.NewClient(cfg.Twitter, limiter, log)
	aiClient := ai.NewClient(cfg.Anthropic, limiter, log)
	sender := notify.NewSender(limiter, log)

	// Build the monitoring pipeline
	processor := monitor.NewProcessor(twitterClient, aiClient, sender, repo, cfg.Monitor.FetchCount, log)
	scanner := monitor.NewScanner(processor, repo, log)

	// Start the management API
	apiServer := server.New(repo, twitterClient, scanner, log)
	go startAPIServer(apiServer, cfg.Server.Port)

	// Create cron scheduler
	c := cron.New(cron.WithLogger(cronLogger{log}))

	// Schedule the fleet scan
	_, err = c.AddFunc(cfg.Monitor.Cron, func() {
		ctx := context.Background()
		log.Info().Msg("Running scheduled fleet scan")

		result, err := scanner.RunCycle(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled fleet scan failed")
			return
		}

		for _, e := range result.Errors {
			log.Error().Str("target_error", e).Msg("Fleet scan target error")
		}
		log.Info().
			Int("processed", result.Processed).
			Int("tweets_sent", result.TweetsSent).
			Int("errors", len(result.Errors)).
			Msg("Scheduled fleet scan completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule fleet scan: %w", err)
	}
	log.Info().Str("cron", cfg.Monitor.Cron).Msg("Fleet scan scheduled")

	// Schedule the daily digest
	if cfg.Digest.Enabled {
		broadcaster := digest.New(cfg.Digest, sender, limiter, log)
		_, err = c.AddFunc(cfg.Digest.Cron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			log.Info().Msg("Running scheduled digest")
			if err := broadcaster.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Scheduled digest failed")
				return
			}
			log.Info().Msg("Scheduled digest completed")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule digest: %w", err)
		}
		log.Info().Str("cron", cfg.Digest.Cron).Msg("Digest scheduled")
	}

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	c.Stop()

	return nil
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// startAPIServer serves the management API and health checks
func startAPIServer(apiServer *server.Server, port string) {
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}

	log.Info().Str("port", port).Msg("API server starting")
	if err := http.ListenAndServe(":"+port, apiServer.Routes()); err != nil {
		log.Error().Err(err).Msg("API server failed")
	}
}
