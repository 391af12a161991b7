package session

import (
	"context"
	"log"
	"time"
)

// RunSweeper expires idle sessions every interval until ctx is done. Expiry
// itself is disabled by a zero Config.IdleTimeout.
func RunSweeper(ctx context.Context, svc Service, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.ExpireIdle(ctx); err != nil {
				log.Printf("idle session sweep failed: %v", err)
			}
		}
	}
}
