// internal/daily/scheduler.go
//
// Word rotation scheduler. The game engine never schedules anything
// itself; this goroutine wakes at every UTC midnight and hands the new
// day key to a callback (the HTTP layer uses it to broadcast the
// word-of-the-day event to connected clients).
package daily

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunRotation blocks until ctx is done, invoking notify once per UTC day
// change with the new date key.
func RunRotation(ctx context.Context, notify func(date string)) {
	for {
		next := NextRotation(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			date := DateKey(time.Now())
			log.Info().Str("date", date).Msg("daily word rotated")
			notify(date)
		}
	}
}
