package util

import (
	"context"
	"time"
)

// Timer is a reusable wait timer for retry and sampling loops, it must
// not be shared between goroutines.
type Timer struct {
	impl  *time.Timer
	fired bool
}

func NewTimer(d time.Duration) *Timer {
	return &Timer{impl: time.NewTimer(d)}
}

func (t *Timer) Stop() {
	t.impl.Stop()
}

// Reset rearms the timer to d and discards a tick nobody consumed.
func (t *Timer) Reset(d time.Duration) {
	if !t.impl.Stop() && !t.fired {
		<-t.impl.C
	}
	t.impl.Reset(d)
	t.fired = false
}

// Wait blocks for d or until ctx is done.
func (t *Timer) Wait(ctx context.Context, d time.Duration) error {
	t.Reset(d)
	select {
	case <-t.impl.C:
		t.fired = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
