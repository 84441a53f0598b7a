package core

// report_limiter.go bounds how many PDF/XLSX reports render at once.
//
// Rendering a large resource listing holds the whole table in memory, so
// parallel renders are capped by a semaphore. When all slots are busy a new
// request waits up to maxWait before failing with ErrTooManyReports.
// WaitForDrain lets shutdown finish in-flight renders.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyReports is returned when every render slot stays busy for maxWait.
var ErrTooManyReports = errors.New("too many reports in progress, please try again later")

// DefaultMaxConcurrentReports is the default limit for parallel renders.
const DefaultMaxConcurrentReports = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 10 * time.Second

// ReportLimiter controls concurrent report rendering using a semaphore.
type ReportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewReportLimiter allows at most maxConcurrent simultaneous renders.
func NewReportLimiter(maxConcurrent int, maxWait time.Duration) *ReportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentReports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &ReportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a render slot.
// The caller MUST call Release() when the render completes (use defer).
func (l *ReportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyReports
	}
}

// TryAcquire takes a slot without blocking.
func (l *ReportLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *ReportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// Do runs fn while holding a slot.
func (l *ReportLimiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// ActiveCount returns the number of renders in progress.
func (l *ReportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the configured slot count.
func (l *ReportLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *ReportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active renders complete or ctx is cancelled.
func (l *ReportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReportLimiterStatus is a snapshot of the limiter's state.
type ReportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for the health endpoint.
func (l *ReportLimiter) Status() ReportLimiterStatus {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return ReportLimiterStatus{
		Active:        active,
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
