package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/mood-server/internal/db"
	"github.com/mrwolf/mood-server/internal/logger"
)

// Job names, also used as scheduler_runs.job_type
const (
	JobModelRefresh = "model-refresh"
	JobPruneAudit   = "prune-audit"
)

// Refresher retrains the model from the stored history
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	scheduler   gocron.Scheduler
	db          *db.DB
	refresher   Refresher
	log         *logger.Logger
	clock       clockwork.Clock
	timezone    *time.Location
	refreshCron string
	retention   time.Duration
}

// Config holds scheduler configuration
type Config struct {
	Location    *time.Location // nil means UTC
	RefreshCron string
	Retention   time.Duration
	Clock       clockwork.Clock
}

// New creates a new scheduler
func New(refresher Refresher, database *db.DB, log *logger.Logger, cfg Config) (*Scheduler, error) {
	tz := cfg.Location
	if tz == nil {
		tz = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(tz),
		gocron.WithClock(cfg.Clock),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler:   s,
		db:          database,
		refresher:   refresher,
		log:         log.Component("scheduler"),
		clock:       cfg.Clock,
		timezone:    tz,
		refreshCron: cfg.RefreshCron,
		retention:   cfg.Retention,
	}, nil
}

// Start starts the scheduler and registers all jobs
func (s *Scheduler) Start() error {
	if s.refreshCron != "" {
		_, err := s.scheduler.NewJob(
			gocron.CronJob(s.refreshCron, false),
			gocron.NewTask(s.refreshModel),
			gocron.WithName(JobModelRefresh),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("registering %s: %w", JobModelRefresh, err)
		}
	}

	if s.retention > 0 {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(1*time.Hour),
			gocron.NewTask(s.pruneAudit),
			gocron.WithName(JobPruneAudit),
		)
		if err != nil {
			return fmt.Errorf("registering %s: %w", JobPruneAudit, err)
		}
	}

	s.scheduler.Start()
	s.log.Info("scheduler started",
		"timezone", s.timezone.String(),
		"refresh_cron", s.refreshCron,
		"retention", s.retention.String(),
	)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// Jobs returns the names of the registered jobs
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name()
	}
	return names
}

func (s *Scheduler) refreshModel() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	_ = s.RefreshNow(ctx)
}

func (s *Scheduler) pruneAudit() {
	_, _ = s.PruneNow()
}

// RefreshNow retrains the model immediately and records the run
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	return s.track(JobModelRefresh, func() error {
		n, err := s.refresher.Refresh(ctx)
		if err != nil {
			return err
		}
		s.log.Info("model refreshed", "history_len", n)
		return nil
	})
}

// PruneNow deletes prediction audit rows older than the retention period
func (s *Scheduler) PruneNow() (int64, error) {
	var pruned int64
	err := s.track(JobPruneAudit, func() error {
		cutoff := s.clock.Now().Add(-s.retention)
		n, err := s.db.PrunePredictions(cutoff)
		if err != nil {
			return err
		}
		pruned = n
		if n > 0 {
			s.log.Info("pruned prediction audit", "rows", n, "before", cutoff.UTC().Format(time.RFC3339))
		}
		return nil
	})
	return pruned, err
}

// track wraps fn in a scheduler_runs record. A failure to write the record
// is logged but does not stop the job.
func (s *Scheduler) track(jobType string, fn func() error) error {
	log := s.log.With("job", jobType)
	runID, err := s.db.StartSchedulerRun(jobType)
	if err != nil {
		log.Warn("failed to record job start", "error", err)
	}

	start := s.clock.Now()
	jobErr := fn()

	errMsg := ""
	if jobErr != nil {
		errMsg = jobErr.Error()
		log.Error("job failed", "error", jobErr)
	} else {
		log.Debug("job finished", "duration", s.clock.Since(start).String())
	}
	if runID != 0 {
		if err := s.db.CompleteSchedulerRun(runID, errMsg); err != nil {
			log.Warn("failed to record job completion", "error", err)
		}
	}
	return jobErr
}
