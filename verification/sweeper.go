package verification

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is how often RunSweeper purges expired sessions.
const DefaultSweepInterval = 5 * time.Minute

// Sweepable deletes expired sessions.
type Sweepable interface {
	Sweep(ctx context.Context) (int64, error)
}

// RunSweeper calls Sweep every interval until ctx is cancelled. Sweep errors are
// logged and the loop carries on.
func RunSweeper(ctx context.Context, target Sweepable, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Session sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session sweeper stopped")
			return
		case <-ticker.C:
			deleted, err := target.Sweep(ctx)
			if err != nil {
				log.Err(err).Msg("Session sweep failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("Expired sessions purged")
			}
		}
	}
}
