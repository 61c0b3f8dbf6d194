package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// DefaultCleanupSchedule sweeps expired sessions every five minutes
const DefaultCleanupSchedule = "@every 5m"

// CleanupConfig holds the dependencies for the cleanup service.
type CleanupConfig struct {
	Store    *Store
	Schedule string // cron expression or descriptor; defaults to DefaultCleanupSchedule
	Logger   *slog.Logger

	// OnCleanup, when set, is called after every sweep with the number of removed sessions
	OnCleanup func(ctx context.Context, removed int)
}

// CleanupService periodically calls Store.CleanupExpired.
// The store never sweeps on its own; this service is the optional driver.
type CleanupService struct {
	store     *Store
	schedule  string
	logger    *slog.Logger
	onCleanup func(ctx context.Context, removed int)

	mu      sync.Mutex
	cron    *cronlib.Cron
	cancel  context.CancelFunc
	running bool
}

// NewCleanupService creates a cleanup service from config.
func NewCleanupService(cfg CleanupConfig) *CleanupService {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CleanupService{
		store:     cfg.Store,
		schedule:  schedule,
		logger:    logger.With(slog.String("component", "memory.cleanup")),
		onCleanup: cfg.OnCleanup,
	}
}

// Start registers the sweep on the schedule and starts the scheduler.
// The service stops on its own when ctx is cancelled.
func (c *CleanupService) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)

	scheduler := cronlib.New()
	if _, err := scheduler.AddFunc(c.schedule, func() { c.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid cleanup schedule %q: %w", c.schedule, err)
	}
	scheduler.Start()

	c.cron = scheduler
	c.cancel = cancel
	c.running = true

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	c.logger.Info("cleanup service started", slog.String("schedule", c.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (c *CleanupService) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	scheduler := c.cron
	cancel := c.cancel
	c.running = false
	c.cron = nil
	c.cancel = nil
	c.mu.Unlock()

	<-scheduler.Stop().Done()
	cancel()

	c.logger.Info("cleanup service stopped")
}

// IsRunning returns whether the scheduler is active.
func (c *CleanupService) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// RunOnce performs a single sweep and returns the number of removed sessions.
func (c *CleanupService) RunOnce(ctx context.Context) int {
	start := time.Now()
	removed := c.store.CleanupExpired()

	if removed > 0 {
		c.logger.InfoContext(ctx, "cleaned up expired sessions",
			slog.Int("removed", removed),
			slog.Duration("duration", time.Since(start)),
		)
	}

	stats := c.store.Stats()
	c.logger.DebugContext(ctx, "session stats after cleanup",
		slog.Int("active_sessions", stats.ActiveSessions),
		slog.Int("total_messages", stats.TotalMessages),
	)

	if c.onCleanup != nil {
		c.onCleanup(ctx, removed)
	}

	return removed
}
