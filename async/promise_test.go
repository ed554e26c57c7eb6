package async

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ExamplePromise_Wait() {
	var p = NewPromise()

	go func() {
		// Deliver a batch of messages.
		time.Sleep(10 * time.Millisecond)
		fmt.Println("Deliveries complete.")
		p.Resolve()
	}()

	fmt.Println("Awaiting deliveries.")
	p.Wait()
	fmt.Println("Flushed.")

	// Output:
	// Awaiting deliveries.
	// Deliveries complete.
	// Flushed.
}

func TestWaitWithPeriodicTask(t *testing.T) {
	var p = NewPromise()
	var ticks int

	assert.NoError(t, p.WaitWithPeriodicTask(context.Background(), time.Millisecond, func() {
		if ticks++; ticks == 3 {
			p.Resolve()
		}
	}))
	assert.Equal(t, 3, ticks)

	// A resolved Promise returns immediately.
	assert.NoError(t, p.WaitWithPeriodicTask(context.Background(), time.Hour, func() {
		t.Error("unexpected task invocation")
	}))
}

func TestWaitWithPeriodicTaskCancelled(t *testing.T) {
	var p = NewPromise()
	var ctx, cancel = context.WithCancel(context.Background())
	var ticks int

	assert.Equal(t, context.Canceled, p.WaitWithPeriodicTask(ctx, time.Millisecond, func() {
		if ticks++; ticks == 2 {
			cancel()
		}
	}))
	assert.Equal(t, 2, ticks)
}
