package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"maptimes/internal/domain"
	"maptimes/internal/metrics"
)

type Ingester interface {
	Run(ctx context.Context) (*domain.IngestStats, error)
}

type Backfiller interface {
	Run(ctx context.Context) (*domain.GeocodeStats, error)
}

// Scheduler runs ingestion followed by geocoding on a cron schedule. A run
// that is still in progress when the next one is due causes that one to be
// skipped.
type Scheduler struct {
	ingester   Ingester
	backfiller Backfiller
	spec       string
	timeout    time.Duration
	cron       *cron.Cron
	cronLogger cron.Logger
	logger     *slog.Logger
}

type Config struct {
	Cron     string
	Timezone string
	Timeout  time.Duration
}

func NewScheduler(ingester Ingester, backfiller Backfiller, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", cfg.Cron, err)
	}

	logger = logger.With("component", "scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))

	return &Scheduler{
		ingester:   ingester,
		backfiller: backfiller,
		spec:       cfg.Cron,
		timeout:    cfg.Timeout,
		cron:       cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger)),
		cronLogger: cronLogger,
		logger:     logger,
	}, nil
}

// Start performs one run immediately, then follows the schedule until ctx is
// cancelled. It waits for a running job before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	job := cron.NewChain(cron.SkipIfStillRunning(s.cronLogger)).
		Then(cron.FuncJob(func() { s.RunOnce(ctx) }))

	if _, err := s.cron.AddJob(s.spec, job); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}

	s.logger.Info("scheduler started", "cron", s.spec, "timeout", s.timeout)

	s.cron.Start()
	job.Run()

	<-ctx.Done()
	<-s.cron.Stop().Done()

	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

// RunOnce ingests all feeds and then backfills publisher locations. The
// backfill runs even when ingestion failed.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ingestStats, err := s.ingester.Run(runCtx)
	metrics.ObserveIngest(ingestStats, err)
	if err != nil {
		s.logger.Error("ingestion failed", "error", err)
	}

	geocodeStats, err := s.backfiller.Run(runCtx)
	metrics.ObserveGeocode(geocodeStats, err)
	if err != nil {
		s.logger.Error("geocoding failed", "error", err)
	}
}
