package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestReportLimiter_AcquireRelease(t *testing.T) {
	limiter := NewReportLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Available(); got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := limiter.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	limiter.Release()
	limiter.Release()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("after Release, ActiveCount = %d, want 0", got)
	}
}

func TestReportLimiter_TimesOutWhenFull(t *testing.T) {
	limiter := NewReportLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManyReports) {
		t.Errorf("expected ErrTooManyReports, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("returned too fast: %v", elapsed)
	}
}

func TestReportLimiter_ContextCancellation(t *testing.T) {
	limiter := NewReportLimiter(1, time.Second)
	if !limiter.TryAcquire() {
		t.Fatal("TryAcquire on empty limiter failed")
	}
	defer limiter.Release()

	if limiter.TryAcquire() {
		t.Fatal("TryAcquire on full limiter should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReportLimiter_Do(t *testing.T) {
	limiter := NewReportLimiter(3, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Do(context.Background(), func() error {
				mu.Lock()
				if n := limiter.ActiveCount(); n > maxObserved {
					maxObserved = n
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxObserved > 3 {
		t.Errorf("observed %d concurrent renders, limit is 3", maxObserved)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after Do = %d, want 0", got)
	}
}

func TestReportLimiter_WaitForDrain(t *testing.T) {
	limiter := NewReportLimiter(2, time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain = %v", err)
	}
}

func TestReportLimiter_StatusAndDefaults(t *testing.T) {
	limiter := NewReportLimiter(0, 0)
	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentReports {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentReports)
	}

	limiter.TryAcquire()
	st := limiter.Status()
	if st.Active != 1 || st.Available != DefaultMaxConcurrentReports-1 {
		t.Errorf("Status = %+v", st)
	}
	limiter.Release()
}
