// Package reminder posts a notice shortly before scheduled events start.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "gatherbot/internal/log"
	"gatherbot/internal/model"
)

const (
	DefaultSpec = "* * * * *"
	DefaultLead = 30 * time.Minute
)

// Claimer hands out events whose reminder is due, each exactly once.
type Claimer interface {
	ClaimDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]*model.Event, error)
}

// Notifier delivers one reminder.
type Notifier interface {
	Remind(ctx context.Context, ev *model.Event) error
}

type Scheduler struct {
	cron     *cron.Cron
	claimer  Claimer
	notifier Notifier
	lead     time.Duration
	now      func() time.Time
	ctx      context.Context
}

// New prepares a scheduler ticking on spec (standard 5-field cron syntax).
// Nothing runs until Start.
func New(ctx context.Context, spec string, lead time.Duration, claimer Claimer, notifier Notifier) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if lead <= 0 {
		lead = DefaultLead
	}

	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		claimer:  claimer,
		notifier: notifier,
		lead:     lead,
		now:      time.Now,
		ctx:      ctx,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("reminder: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	appLog.Info("reminder scheduler started", "lead", s.lead.String())
	s.cron.Start()
}

// Stop stops the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	appLog.Info("reminder scheduler stopped")
}

func (s *Scheduler) tick() {
	if _, err := s.RunOnce(s.ctx); err != nil {
		appLog.Error("reminder tick failed", err)
	}
}

// RunOnce claims due events and notifies each. A failed notification is
// logged and not retried; the event stays claimed.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	events, err := s.claimer.ClaimDueReminders(ctx, s.now(), s.lead)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, ev := range events {
		if err := s.notifier.Remind(ctx, ev); err != nil {
			appLog.Error("reminder not delivered", err, "event", ev.Name)
			continue
		}
		sent++
	}
	return sent, nil
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
