package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/ManuelReschke/CourseFox/internal/pkg/checkout"
)

// Sweeper drops expired rate limit windows.
type Sweeper interface {
	Sweep() int
}

// Reconciler finalizes paid purchases the webhook and verify paths missed.
type Reconciler interface {
	ReconcilePending(ctx context.Context, minAge time.Duration, limit int) (checkout.ReconcileReport, error)
}

// Options configures the background jobs. A nil Sweeper or Reconciler, or a
// non positive interval, disables that job.
type Options struct {
	Sweeper    Sweeper
	SweepEvery time.Duration

	Reconciler       Reconciler
	ReconcileEvery   time.Duration
	ReconcileMinAge  time.Duration
	ReconcileBatch   int
	ReconcileTimeout time.Duration
}

// Scheduler runs the periodic maintenance jobs on a cron.
type Scheduler struct {
	cron *cron.Cron
	opts Options
	jobs int
}

// New registers the enabled jobs. Runs of the same job never overlap.
func New(opts Options) (*Scheduler, error) {
	logger := cron.PrintfLogger(log.StandardLogger())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		opts: opts,
	}
	if s.opts.ReconcileTimeout <= 0 {
		s.opts.ReconcileTimeout = 2 * time.Minute
	}

	if opts.Sweeper != nil && opts.SweepEvery > 0 {
		if _, err := s.cron.AddFunc(every(opts.SweepEvery), s.RunSweep); err != nil {
			return nil, fmt.Errorf("schedule rate limit sweep: %w", err)
		}
		s.jobs++
	}
	if opts.Reconciler != nil && opts.ReconcileEvery > 0 {
		if _, err := s.cron.AddFunc(every(opts.ReconcileEvery), s.RunReconcile); err != nil {
			return nil, fmt.Errorf("schedule purchase reconciler: %w", err)
		}
		s.jobs++
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return s.jobs
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.WithField("jobs", s.jobs).Info("Scheduler started")
}

// Stop stops the cron and waits for running jobs up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn("Scheduler stop timed out with jobs still running")
	}
}

// RunSweep performs one rate limit sweep.
func (s *Scheduler) RunSweep() {
	if removed := s.opts.Sweeper.Sweep(); removed > 0 {
		log.WithField("removed", removed).Debug("Rate limit sweep")
	}
}

// RunReconcile performs one pass over stale pending purchases.
func (s *Scheduler) RunReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ReconcileTimeout)
	defer cancel()

	report, err := s.opts.Reconciler.ReconcilePending(ctx, s.opts.ReconcileMinAge, s.opts.ReconcileBatch)
	if err != nil {
		log.WithError(err).Error("Pending purchase reconcile failed")
		return
	}
	if report.Checked > 0 {
		log.WithFields(log.Fields{
			"checked":   report.Checked,
			"finalized": report.Finalized,
			"unpaid":    report.Unpaid,
			"failed":    report.Failed,
		}).Info("Pending purchases reconciled")
	}
}

func every(d time.Duration) string {
	return "@every " + d.String()
}
