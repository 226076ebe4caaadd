package scheduler

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures the worker pool and its Job bookkeeping never leave a
// goroutine running past Close, since every test in this package spins
// up a Scheduler.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
