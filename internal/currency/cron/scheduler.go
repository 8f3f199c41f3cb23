package cronjob

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/logging"
)

// DefaultSchedule runs at 12:00 AM every day.
const DefaultSchedule = "0 0 0 * * *"

// Refresher reloads exchange rates.
type Refresher interface {
	RefreshExchangeRates(ctx context.Context) error
}

type Scheduler struct {
	c         *cron.Cron
	refresher Refresher
	schedule  string
	timeout   time.Duration
	log       *logging.Logger
}

func NewScheduler(refresher Refresher, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		c:         cron.New(cron.WithSeconds()),
		refresher: refresher,
		schedule:  schedule,
		timeout:   time.Minute,
		log:       logging.New("cron"),
	}
}

// Start registers the nightly rate refresh and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.c.AddFunc(s.schedule, s.runNightlyRefresh); err != nil {
		return fmt.Errorf("failed to create cron job: %w", err)
	}

	s.log.Infof(context.Background(), "start", "rate refresh scheduled schedule=%q", s.schedule)
	s.c.Start()
	return nil
}

// Stop halts the loop and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

func (s *Scheduler) runNightlyRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.RefreshExchangeRates(ctx); err != nil {
		s.log.Error(ctx, "refresh-rates", err)
		return
	}
	s.log.Infof(ctx, "refresh-rates", "completed in %s", time.Since(start))
}
