package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/x-monitor/internal/models"
	"github.com/x-monitor/pkg/logger"
)

// TargetStore loads monitor targets for scanning
type TargetStore interface {
	ListActiveTargetsWithConfig(ctx context.Context) ([]*models.MonitorTarget, error)
	GetTargetByID(ctx context.Context, id uint) (*models.MonitorTarget, error)
}

// Scanner is the scheduled entry point: it runs the processor over every
// eligible target and aggregates a run summary. It is safe to invoke
// concurrently with itself; overlapping runs race harmlessly on the cursor
// (last write wins), which the 3-hour default schedule makes practically
// impossible anyway.
type Scanner struct {
	processor *Processor
	store     TargetStore
	log       *logger.Logger
}

// NewScanner creates a new fleet scanner
func NewScanner(processor *Processor, store TargetStore, log *logger.Logger) *Scanner {
	return &Scanner{
		processor: processor,
		store:     store,
		log:       log.WithComponent("scanner"),
	}
}

// RunResult contains the aggregate outcome of one fleet scan. It is
// reported and logged only, never persisted.
type RunResult struct {
	Processed  int
	TweetsSent int
	Errors     []string
	Duration   time.Duration
}

// RunCycle scans every active target that has a notification config
// attached. Targets are processed concurrently; a single target's failure
// is captured into Errors and never stops the remaining targets.
func (s *Scanner) RunCycle(ctx context.Context) (*RunResult, error) {
	startTime := time.Now()
	result := &RunResult{}

	s.log.Info().Msg("Starting fleet scan")

	targets, err := s.store.ListActiveTargetsWithConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitor targets: %w", err)
	}

	if len(targets) == 0 {
		s.log.Info().Msg("No active monitor targets found")
		result.Duration = time.Since(startTime)
		return result, nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target *models.MonitorTarget) {
			defer wg.Done()

			procResult, err := s.processor.ProcessTarget(ctx, target)

			mu.Lock()
			defer mu.Unlock()
			result.Processed++
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("Target %s (@%s): %v", target.Name, target.XHandle, err))
				return
			}
			result.TweetsSent += procResult.TweetsSent
		}(target)
	}
	wg.Wait()

	result.Duration = time.Since(startTime)

	s.log.Info().
		Int("processed", result.Processed).
		Int("tweets_sent", result.TweetsSent).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("Fleet scan completed")

	return result, nil
}

// ScanTarget runs a single-target scan, used right after a target is
// created with a notification config attached.
func (s *Scanner) ScanTarget(ctx context.Context, targetID uint) (*Result, error) {
	target, err := s.store.GetTargetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("target not found: %w", err)
	}
	return s.processor.ProcessTarget(ctx, target)
}
