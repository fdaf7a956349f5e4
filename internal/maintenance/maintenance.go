// Package maintenance schedules housekeeping jobs for the sqlite database
// and the in-process limiters.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"riftbound/pkg/logging"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 2 * time.Minute

type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	log  logging.Logger
}

func NewScheduler(log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		log:  log.With(map[string]any{"component": "maintenance"}),
	}
}

// Add registers j. An empty spec leaves the job disabled.
func (s *Scheduler) Add(j Job) error {
	if j.Spec == "" {
		s.log.Info("job disabled", map[string]any{"job": j.Name})
		return nil
	}
	_, err := s.cron.AddFunc(j.Spec, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", j.Name, err)
	}
	return nil
}

func (s *Scheduler) run(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.log.Error("job failed", err, map[string]any{"job": j.Name})
		return
	}
	s.log.Debug("job done", map[string]any{
		"job":         j.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// Len is the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Checkpoint folds the WAL back into the main database file.
func Checkpoint(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
		return err
	}
}

// Optimize refreshes sqlite's query planner statistics.
func Optimize(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, `PRAGMA optimize`)
		return err
	}
}
