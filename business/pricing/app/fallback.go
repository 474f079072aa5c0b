package app

import (
	"context"
	"time"
)

// AgeFunc reports how old the newest value is and false when there is none.
type AgeFunc func() (time.Duration, bool)

// PollWhenStale checks the cell immediately and then every interval, calling
// refresh whenever it is empty or at least staleAfter old. A zero staleAfter
// refreshes on every tick. Refresh errors go to onErr and polling continues.
// Returns nil when ctx is done.
func PollWhenStale(
	ctx context.Context,
	age AgeFunc,
	staleAfter, interval time.Duration,
	refresh func(ctx context.Context) error,
	onErr func(error),
) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if a, ok := age(); !ok || a >= staleAfter {
			if err := refresh(ctx); err != nil && ctx.Err() == nil && onErr != nil {
				onErr(err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
