package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

func TestNew_BurstIsTenPercent(t *testing.T) {
	l := New(600) // 10 rps, burst 60

	allowed := 0
	for i := 0; i < 100; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed != 60 {
		t.Errorf("allowed %d requests in a burst, want 60", allowed)
	}
}

func TestNew_MinimumBurstOfOne(t *testing.T) {
	l := New(1)
	if !l.Allow() {
		t.Fatal("first request should be allowed")
	}
	if l.Allow() {
		t.Error("second immediate request should be limited")
	}
}

func TestWait_ContextDeadline(t *testing.T) {
	l := New(1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if !apperror.HasCode(err, apperror.CodeRateLimitExceeded) {
		t.Fatalf("err = %v, want %s", err, apperror.CodeRateLimitExceeded)
	}
}
