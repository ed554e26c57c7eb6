// Package async implements a simple Promise API, used to signal completion
// of background delivery and drain routines.
package async

import (
	"context"
	"time"
)

// Promise is a simple notification primitive for asynchronous events.
type Promise chan struct{}

// NewPromise returns an unresolved Promise.
func NewPromise() Promise { return make(Promise) }

// Resolve wakes any clients currently waiting on the Promise.
func (s Promise) Resolve() {
	close(s)
}

// Wait synchronously blocks until the Promise is resolved.
func (s Promise) Wait() {
	<-s
}

// WaitWithPeriodicTask blocks until the Promise is resolved, invoking |task|
// with period |period| while it waits. If |ctx| is done first, its error
// is returned.
func (s Promise) WaitWithPeriodicTask(ctx context.Context, period time.Duration, task func()) error {
	var ticker = time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s:
			return nil
		case <-ticker.C:
			task()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
