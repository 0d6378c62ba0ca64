// Package maintenance runs the engine's periodic housekeeping.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReceiptPurger removes delivery receipts older than a cutoff.
type ReceiptPurger interface {
	PurgeReceipts(ctx context.Context, before time.Time) (int64, error)
}

// UserCounter reports the number of registered users.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Scheduler owns the cron loop: hourly receipt retention and a daily
// registered-user count in the log.
type Scheduler struct {
	cron      *cron.Cron
	purger    ReceiptPurger
	counter   UserCounter
	retention time.Duration
	log       logrus.FieldLogger
}

// New builds a scheduler. retention <= 0 defaults to 90 days.
func New(purger ReceiptPurger, counter UserCounter, retention time.Duration, log logrus.FieldLogger) *Scheduler {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		cron:      cron.New(),
		purger:    purger,
		counter:   counter,
		retention: retention,
		log:       log,
	}
}

// Start registers the jobs and begins the loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("17 * * * *", s.purgeReceipts); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 6 * * *", s.logUserCount); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the loop; the returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) purgeReceipts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.purger.PurgeReceipts(ctx, time.Now().Add(-s.retention))
	if err != nil {
		s.log.WithError(err).Warn("maintenance: receipt purge failed")
		return
	}
	if n > 0 {
		s.log.WithField("purged", n).Info("maintenance: receipts purged")
	}
}

func (s *Scheduler) logUserCount() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.counter.Count(ctx)
	if err != nil {
		s.log.WithError(err).Warn("maintenance: user count failed")
		return
	}
	s.log.WithField("users", n).Info("maintenance: registered users")
}
