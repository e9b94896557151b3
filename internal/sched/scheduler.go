package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweep is a periodic maintenance job returning how many items it handled.
type Sweep interface {
	Run(ctx context.Context) (int, error)
}

// Scheduler runs sweeps on cron schedules. Each job is wrapped so an
// in-flight run suppresses the next trigger and a panic never takes the
// scheduler down.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

func New(log *logrus.Logger) *Scheduler {
	cronLog := cron.PrintfLogger(log)
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLog),
			cron.Recover(cronLog),
		)),
		log: log,
	}
}

// Add registers a sweep under the given cron spec.
func (s *Scheduler) Add(spec, name string, sweep Sweep) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		processed, err := sweep.Run(context.Background())
		if err != nil {
			s.log.WithError(err).WithField("sweep", name).Error("sweep failed")
			return
		}
		s.log.WithFields(logrus.Fields{
			"sweep":     name,
			"processed": processed,
			"duration":  time.Since(start).String(),
		}).Info("sweep completed")
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
