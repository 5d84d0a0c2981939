package schedule

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/orchestrator"
)

// Scheduler owns a cron runner dispatching orchestrated plugin runs.
type Scheduler struct {
	cron *cron.Cron
	orch *orchestrator.Orchestrator
	log  *logrus.Logger
}

// New creates a stopped Scheduler.
func New(orch *orchestrator.Orchestrator, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	return &Scheduler{
		cron: cron.New(),
		orch: orch,
		log:  log,
	}
}

// Add schedules a recurring run. spec is a standard five-field cron
// expression. Each firing is an independent orchestrated run; overlapping
// runs are not prevented beyond the admission check itself.
func (s *Scheduler) Add(spec, pluginName, target string, options map[string]any) (cron.EntryID, error) {
	log := s.log.WithFields(logrus.Fields{"plugin": pluginName, "schedule": spec})

	return s.cron.AddFunc(spec, func() {
		report := s.orch.Run(context.Background(), pluginName, target, options, orchestrator.RunOptions{})
		if report.Succeeded() {
			log.WithField("elapsed", report.Elapsed).Info("Scheduled run completed")
		} else {
			log.WithField("message", report.Result.Message).Warn("Scheduled run failed")
		}
	})
}

// Remove deletes a scheduled entry.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Entries returns the number of scheduled runs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
