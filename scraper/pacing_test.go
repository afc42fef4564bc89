package scraper

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProfileFor(t *testing.T) {
	if got := ProfileFor(true); got != FastProfile {
		t.Errorf("ProfileFor(true) = %+v, want the fast profile", got)
	}
	if got := ProfileFor(false); got != NormalProfile {
		t.Errorf("ProfileFor(false) = %+v, want the normal profile", got)
	}
	if FastProfile.RenderSettle >= NormalProfile.RenderSettle {
		t.Error("fast profile should settle renders quicker than normal")
	}
}

func TestPacer_SettleHonorsCancellation(t *testing.T) {
	p := NewPacer(Profile{ClickSettle: time.Minute, RowInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.SettleClick(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SettleClick = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("SettleClick blocked %v after cancellation", elapsed)
	}
}

func TestPacer_ZeroDelayReturnsImmediately(t *testing.T) {
	p := NewPacer(Profile{RowInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A zero-valued delay never sleeps, so not even a dead context fails it.
	if err := p.SettlePage(ctx); err != nil {
		t.Errorf("SettlePage with zero delay = %v, want nil", err)
	}
}

func TestPacer_FirstRowTickIsImmediate(t *testing.T) {
	p := NewPacer(Profile{RowInterval: time.Hour})

	start := time.Now()
	if err := p.RowTick(context.Background()); err != nil {
		t.Fatalf("RowTick: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("first RowTick blocked %v, want the initial burst token", elapsed)
	}
}

func TestPacer_RowTickHonorsCancellation(t *testing.T) {
	p := NewPacer(Profile{RowInterval: time.Hour})
	if err := p.RowTick(context.Background()); err != nil {
		t.Fatalf("first RowTick: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.RowTick(ctx); err == nil {
		t.Error("second RowTick should fail once the context is dead")
	}
}
