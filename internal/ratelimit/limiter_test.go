package ratelimit

import (
	"testing"
	"time"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
)

func TestCheckAndRecord_AllowsFirstRequest(t *testing.T) {
	l := New(Config{MaxRequests: 10, MaxCostCents: 100, Window: time.Hour})

	if err := l.CheckAndRecord(5.0); err != nil {
		t.Fatalf("expected first request to be allowed, got %v", err)
	}

	usage := l.Usage()
	if usage.RequestCount != 1 || usage.TotalCostCents != 5.0 {
		t.Errorf("usage = %+v, want RequestCount=1 TotalCostCents=5.0", usage)
	}
}

func TestCheckAndRecord_MultipleRequests(t *testing.T) {
	l := New(Config{MaxRequests: 10, MaxCostCents: 100, Window: time.Hour})

	for _, cost := range []float64{1, 2, 3} {
		if err := l.CheckAndRecord(cost); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	usage := l.Usage()
	if usage.RequestCount != 3 || usage.TotalCostCents != 6.0 {
		t.Errorf("usage = %+v, want RequestCount=3 TotalCostCents=6.0", usage)
	}
}

func TestCheckAndRecord_RequestLimitExceeded(t *testing.T) {
	l := New(Config{MaxRequests: 3, MaxCostCents: 1000, Window: time.Hour})

	for i := 0; i < 3; i++ {
		if err := l.CheckAndRecord(1.0); err != nil {
			t.Fatalf("unexpected error on request %d: %v", i, err)
		}
	}

	err := l.CheckAndRecord(1.0)
	kind, retryAfter, ok := errors.IsRateLimited(err)
	if !ok {
		t.Fatalf("expected RateLimited error, got %v", err)
	}
	if kind != errors.RateLimitKindRequests {
		t.Errorf("kind = %s, want requests", kind)
	}
	if retryAfter < 0 {
		t.Errorf("retryAfter = %v, want >= 0", retryAfter)
	}
}

func TestCheckAndRecord_BudgetLimitExceeded(t *testing.T) {
	l := New(Config{MaxRequests: 100, MaxCostCents: 10, Window: time.Hour})

	if err := l.CheckAndRecord(5.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := l.CheckAndRecord(10.0)
	kind, _, ok := errors.IsRateLimited(err)
	if !ok || kind != errors.RateLimitKindBudget {
		t.Fatalf("expected budget RateLimited error, got %v", err)
	}
}

func TestCheckAndRecord_SingleRequestExceedsTotalBudget(t *testing.T) {
	l := New(Config{MaxRequests: 100, MaxCostCents: 10, Window: time.Hour})

	err := l.CheckAndRecord(100.0)
	kind, retryAfter, ok := errors.IsRateLimited(err)
	if !ok || kind != errors.RateLimitKindBudget {
		t.Fatalf("expected budget RateLimited error, got %v", err)
	}
	if retryAfter != 0 {
		t.Errorf("retryAfter = %v, want 0 (can never succeed)", retryAfter)
	}
}

func TestCheckAndRecord_BudgetFreedOverTime(t *testing.T) {
	l := New(Config{MaxRequests: 100, MaxCostCents: 10, Window:50 * time.Millisecond})

	if err := l.CheckAndRecord(5.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := l.CheckAndRecord(10.0); err == nil {
		t.Fatal("expected budget exceeded error")
	}

	time.Sleep(60 * time.Millisecond)

	if err := l.CheckAndRecord(10.0); err != nil {
		t.Fatalf("expected success after window expiry, got %v", err)
	}

	usage := l.Usage()
	if usage.RequestCount != 1 || usage.TotalCostCents != 10.0 {
		t.Errorf("usage = %+v, want RequestCount=1 TotalCostCents=10.0 (old request expired)", usage)
	}
}

func TestUsage_UtilizationPercentages(t *testing.T) {
	l := New(Config{MaxRequests: 100, MaxCostCents: 1000, Window: time.Hour})

	if err := l.CheckAndRecord(100.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	usage := l.Usage()
	if usage.RequestUtilization != 1.0 {
		t.Errorf("RequestUtilization = %v, want 1.0", usage.RequestUtilization)
	}
	if usage.BudgetUtilization != 10.0 {
		t.Errorf("BudgetUtilization = %v, want 10.0", usage.BudgetUtilization)
	}
}

func TestReset_ClearsAllRequests(t *testing.T) {
	l := New(Config{MaxRequests: 100, MaxCostCents: 1000, Window: time.Hour})

	_ = l.CheckAndRecord(100.0)
	_ = l.CheckAndRecord(200.0)

	if usage := l.Usage(); usage.RequestCount != 2 {
		t.Fatalf("expected 2 requests before reset, got %d", usage.RequestCount)
	}

	l.Reset()

	usage := l.Usage()
	if usage.RequestCount != 0 || usage.TotalCostCents != 0 {
		t.Errorf("usage after reset = %+v, want zero", usage)
	}
}

func TestCheckAndRecord_ExactlyAtLimit(t *testing.T) {
	l := New(Config{MaxRequests: 2, MaxCostCents: 10, Window: time.Hour})

	_ = l.CheckAndRecord(5.0)
	_ = l.CheckAndRecord(5.0)

	err := l.CheckAndRecord(0.0)
	kind, _, ok := errors.IsRateLimited(err)
	if !ok || kind != errors.RateLimitKindRequests {
		t.Fatalf("expected requests RateLimited error at exact limit, got %v", err)
	}
}

func TestCheckAndRecord_RequestCountCheckedBeforeBudget(t *testing.T) {
	l := New(Config{MaxRequests: 2, MaxCostCents: 100, Window: time.Hour})

	_ = l.CheckAndRecord(1.0)
	_ = l.CheckAndRecord(1.0)

	err := l.CheckAndRecord(1.0)
	kind, _, ok := errors.IsRateLimited(err)
	if !ok || kind != errors.RateLimitKindRequests {
		t.Fatalf("expected requests RateLimited error (checked before budget), got %v", err)
	}
}

func TestCheckAndRecord_ThreadSafety(t *testing.T) {
	l := New(Config{MaxRequests: 1000, MaxCostCents: 10000, Window: time.Hour})

	done := make(chan error, 5)
	for g := 0; g < 5; g++ {
		go func() {
			for i := 0; i < 100; i++ {
				if err := l.CheckAndRecord(1.0); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}

	for g := 0; g < 5; g++ {
		if err := <-done; err != nil {
			t.Fatalf("unexpected error under concurrency: %v", err)
		}
	}

	usage := l.Usage()
	if usage.RequestCount != 500 {
		t.Errorf("RequestCount = %d, want 500", usage.RequestCount)
	}
}
