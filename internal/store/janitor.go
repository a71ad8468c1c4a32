package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Janitor periodically evicts idle sessions from a Store.
type Janitor struct {
	Store    Store
	TTL      time.Duration
	Interval time.Duration // defaults to TTL/4, at least one second

	// OnEvict, if set, is called with the IDs removed by each sweep.
	OnEvict func(ids []string)

	now func() time.Time
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = max(j.TTL/4, time.Second)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			j.sweepOnce(ctx)
		}
	}
}

func (j *Janitor) sweepOnce(ctx context.Context) []string {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	ids, err := j.Store.Sweep(ctx, now().Add(-j.TTL))
	if err != nil {
		log.Warn().Err(err).Msg("session sweep failed")
		return nil
	}
	if len(ids) > 0 {
		log.Info().Int("evicted", len(ids)).Int("live", j.Store.Len()).Msg("idle sessions evicted")
		if j.OnEvict != nil {
			j.OnEvict(ids)
		}
	}
	return ids
}
