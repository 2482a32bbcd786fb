package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodicRunsJobsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	var p Periodic
	p.Every("count", 5*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) >= 3 {
			cancel()
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("periodic runner did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestEveryRejectsZeroInterval(t *testing.T) {
	var p Periodic
	assert.Panics(t, func() { p.Every("bad", 0, func(context.Context) error { return nil }) })
}
