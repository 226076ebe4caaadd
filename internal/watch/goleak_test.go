package watch

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures the fsnotify watch loop and dirty-coalescing timers
// this package starts never outlive a test's Stop/Cleanup call.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}
