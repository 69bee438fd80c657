package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTickInterval = time.Second
	defaultLockTTL      = 10 * time.Minute
)

// SchedulerOptions configures the polling loop.
type SchedulerOptions struct {
	TickInterval time.Duration
	// MaxConcurrentChecks bounds the checks run in parallel within one tick.
	// 1 keeps the strictly sequential loop.
	MaxConcurrentChecks int
	// LockTTL bounds how long a crashed holder can keep a site locked.
	LockTTL time.Duration
}

// Scheduler drives due sites through the checker on a fixed tick.
type Scheduler struct {
	siteRepo   repository.SiteRepository
	checker    SiteChecker
	locker     repository.SiteLocker
	monitoring *MonitoringState
	opts       SchedulerOptions
	now        func() time.Time
	logger     *zap.Logger
}

// NewScheduler creates the control loop. locker may be nil when a single
// sequential instance runs.
func NewScheduler(
	siteRepo repository.SiteRepository,
	checker SiteChecker,
	locker repository.SiteLocker,
	monitoring *MonitoringState,
	opts SchedulerOptions,
	logger *zap.Logger,
) *Scheduler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.MaxConcurrentChecks <= 0 {
		opts.MaxConcurrentChecks = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	return &Scheduler{
		siteRepo:   siteRepo,
		checker:    checker,
		locker:     locker,
		monitoring: monitoring,
		opts:       opts,
		now:        time.Now,
		logger:     logger.With(zap.String("component", "scheduler")),
	}
}

func (s *Scheduler) StartMonitoring() {
	s.monitoring.Enable()
	s.logger.Info("monitoring started")
}

func (s *Scheduler) StopMonitoring() {
	s.monitoring.Disable()
	s.logger.Info("monitoring stopped")
}

func (s *Scheduler) MonitoringEnabled() bool {
	return s.monitoring.Enabled()
}

// Run executes ticks until ctx is cancelled. Cancellation is observed between
// ticks; a check already in progress runs to completion under its own timeouts.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.Duration("tick", s.opts.TickInterval), zap.Int("max_concurrent_checks", s.opts.MaxConcurrentChecks))

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return
		}

		s.Tick(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick checks every enabled site that is due. It returns once all of those
// checks have finished.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.monitoring.Enabled() {
		return
	}

	sites, err := s.siteRepo.ListDue(ctx, s.now())
	if err != nil {
		s.logger.Error("failed to list due sites", zap.Error(err))
		return
	}
	if len(sites) == 0 {
		return
	}
	s.logger.Debug("checking due sites", zap.Int("count", len(sites)))

	// Checks must not be torn down halfway by shutdown, or they would be
	// misreported as scan failures.
	checkCtx := context.WithoutCancel(ctx)

	if s.opts.MaxConcurrentChecks == 1 {
		for _, site := range sites {
			if ctx.Err() != nil {
				return
			}
			s.runCheck(checkCtx, site)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrentChecks)
	for _, site := range sites {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.runCheck(checkCtx, site)
			return nil
		})
	}
	_ = g.Wait()
}

// runCheck is the recovery boundary for a single site: nothing that happens
// while checking one site may stop the loop. The site is re-read under its
// lock and checked only if it is still enabled and due.
func (s *Scheduler) runCheck(ctx context.Context, site *entity.Site) {
	log := s.logger.With(zap.Int64("site_id", site.ID), zap.String("url", site.URL))

	defer func() {
		if r := recover(); r != nil {
			log.Error("site check panicked", zap.Any("panic", r))
		}
	}()

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx, site.ID, s.opts.LockTTL)
		if err != nil {
			log.Error("failed to acquire site lock", zap.Error(err))
			return
		}
		if !acquired {
			log.Debug("site check already in flight, skipping")
			return
		}
		defer func() {
			if err := s.locker.Unlock(ctx, site.ID); err != nil {
				log.Warn("failed to release site lock", zap.Error(err))
			}
		}()
	}

	// The listed snapshot may predate a check another holder of the lock has
	// just committed, so decide on the stored state.
	current, err := s.siteRepo.Get(ctx, site.ID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Debug("site deleted before its check, skipping")
		return
	}
	if err != nil {
		log.Error("failed to reload site", zap.Error(err))
		return
	}
	if !current.Enabled || !current.IsDue(s.now()) {
		log.Debug("site no longer due, skipping")
		return
	}

	if err := s.checker.CheckSite(ctx, current); err != nil {
		log.Error("site check failed", zap.Error(err))
	}
}
