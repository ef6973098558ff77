package ratelimit

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically evicts expired entries from a SlidingWindow.
type Sweeper struct {
	cron   *cron.Cron
	limit  *SlidingWindow
	logger *slog.Logger
}

func NewSweeper(limit *SlidingWindow, every time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if every <= 0 {
		every = time.Minute
	}

	s := &Sweeper{
		cron:   cron.New(),
		limit:  limit,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), s.sweep); err != nil {
		return nil, fmt.Errorf("scheduling rate limit sweep: %w", err)
	}
	return s, nil
}

func (s *Sweeper) sweep() {
	removed := s.limit.Sweep()
	s.logger.Debug("rate limit sweep", "removed_keys", removed, "tracked_keys", s.limit.Len())
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
