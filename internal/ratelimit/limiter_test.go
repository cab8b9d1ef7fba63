package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWait_NilLimiterIsNoop(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWait_ReturnsOnTick(t *testing.T) {
	l := NewRPS(1000)
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWait_ContextCancel(t *testing.T) {
	l := NewRPS(1)
	defer l.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
