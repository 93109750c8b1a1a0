package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	SweepSpec             = "*/15 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	DefaultIdle           = time.Hour
)

// Sweeper drops per-chat state that has been idle for longer than idle.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	sweeper Sweeper
	idle    time.Duration
	log     *slog.Logger
}

func New(ctx context.Context, sweeper Sweeper, idle time.Duration, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	if idle <= 0 {
		idle = DefaultIdle
	}

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		sweeper: sweeper,
		idle:    idle,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(SweepSpec, s.sweep); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweep() {
	select {
	case <-s.ctx.Done():
		s.log.InfoContext(s.ctx, "Scheduler context is done",
			"error", s.ctx.Err())
		return
	default:
	}

	removed := s.sweeper.Sweep(s.idle)
	if removed > 0 {
		s.log.DebugContext(s.ctx, "Swept idle chats",
			"removed", removed,
			"idle", s.idle)
	}
}
