package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SessionPurger deletes sessions past their refresh window.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	purger  SessionPurger
	log     zerolog.Logger
	timeout time.Duration
}

func NewScheduler(purger SessionPurger, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		purger:  purger,
		log:     log,
		timeout: time.Minute,
	}
}

func (s *Scheduler) Start() error {
	if s.purger == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.purgeSessions); err != nil { // hourly
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired sessions failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("purged expired sessions")
	}
}
