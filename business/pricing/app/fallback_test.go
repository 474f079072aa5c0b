package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollWhenStale_RefreshesOnlyWhenStale(t *testing.T) {
	var fresh atomic.Bool
	var calls atomic.Int32

	age := func() (time.Duration, bool) {
		if fresh.Load() {
			return time.Millisecond, true
		}
		return time.Hour, true
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- PollWhenStale(ctx, age, time.Second, 5*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			fresh.Store(true)
			return nil
		}, nil)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	assert.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load(), "refresh should stop once the cell is fresh")
}

func TestPollWhenStale_EmptyCellRefreshesImmediately(t *testing.T) {
	refreshed := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go PollWhenStale(ctx, func() (time.Duration, bool) { return 0, false }, time.Second, time.Hour,
		func(context.Context) error {
			select {
			case refreshed <- struct{}{}:
			default:
			}
			return nil
		}, nil)

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("expected an immediate refresh for an empty cell")
	}
}

func TestPollWhenStale_ZeroStaleAfterAlwaysRefreshesAndReportsErrors(t *testing.T) {
	var errs atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := PollWhenStale(ctx, func() (time.Duration, bool) { return 0, true }, 0, 5*time.Millisecond,
		func(context.Context) error { return errors.New("rpc down") },
		func(error) { errs.Add(1) })

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, errs.Load(), int32(3))
}
