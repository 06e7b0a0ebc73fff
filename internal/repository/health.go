package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff"
)

// WaitHealthy pings the store with exponential backoff until it answers,
// maxWait elapses, or ctx is canceled.
func WaitHealthy(ctx context.Context, store HealthChecker, maxWait time.Duration) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxElapsedTime = maxWait

	attempt := 0
	operation := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.Printf("⚠️  Store not reachable (attempt %d): %v", attempt, err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return fmt.Errorf("store not reachable after %d attempts: %w", attempt, err)
	}
	return nil
}
