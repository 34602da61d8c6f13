package infra

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SweepSpec is how often expired sessions are swept
const SweepSpec = "@every 1m"

// Sweeper removes expired session state
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	log     *logrus.Entry
}

// NewScheduler creates a scheduler that sweeps with sweeper
func NewScheduler(sweeper Sweeper) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		timeout: 30 * time.Second,
		log:     logrus.WithField("component", "scheduler"),
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(SweepSpec, s.sweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.WithField("spec", SweepSpec).Info("Scheduler started")
	return nil
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.sweeper.Sweep(ctx); err != nil {
		s.log.WithError(err).Error("Session sweep failed")
	}
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler...")
	<-s.cron.Stop().Done()
	s.log.Info("Scheduler stopped")
}
