package interest

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// Sweeper runs AccrueAll on a cron schedule so idle balances keep earning
// without waiting for their next operation.
type Sweeper struct {
	svc      *Service
	schedule string
	cron     *cron.Cron
	log      *logger.Logger
}

// NewSweeper constructs a sweeper. schedule uses cron syntax, for example
// "@daily" or "0 3 * * *".
func NewSweeper(svc *Service, schedule string, log *logger.Logger) *Sweeper {
	if schedule == "" {
		schedule = "@daily"
	}
	if log == nil {
		log = logger.NewDefault("interest-sweeper")
	}
	return &Sweeper{svc: svc, schedule: schedule, log: log}
}

func (s *Sweeper) Name() string { return "interest-sweeper" }

func (s *Sweeper) Start(context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.svc.AccrueAll(context.Background()); err != nil {
			s.log.WithError(err).Error("interest sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("interest sweeper started")
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("interest sweeper stopped")
	return nil
}
