package worker

import (
	"math/rand/v2"
	"time"

	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/metrics"
)

// Schedule decides how long to sleep after a cycle.
type Schedule struct {
	Interval     time.Duration // base delay after a normal cycle
	Jitter       time.Duration // random extra delay in [0, Jitter)
	IdleBackoff  time.Duration // delay when nobody is subscribed
	ErrorBackoff time.Duration // delay after a store failure or feed outage
}

// ScheduleFromConfig maps the polling section onto a Schedule.
func ScheduleFromConfig(cfg config.PollingConfig) Schedule {
	return Schedule{
		Interval:     cfg.Interval(),
		Jitter:       cfg.Jitter(),
		IdleBackoff:  cfg.IdleBackoff(),
		ErrorBackoff: cfg.ErrorBackoff(),
	}
}

// Next returns the sleep before the cycle that follows outcome.
func (s Schedule) Next(outcome string, rng *rand.Rand) time.Duration {
	base := s.Interval
	switch outcome {
	case metrics.CycleIdle:
		base = s.IdleBackoff
	case metrics.CycleError, metrics.CycleOutage:
		base = s.ErrorBackoff
	}
	if s.Jitter <= 0 {
		return base
	}
	var j int64
	if rng != nil {
		j = rng.Int64N(int64(s.Jitter))
	} else {
		j = rand.Int64N(int64(s.Jitter)) //nolint:gosec // scheduling jitter
	}
	return base + time.Duration(j)
}
