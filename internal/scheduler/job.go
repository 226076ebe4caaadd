package scheduler

import (
	"context"
	"sync"

	"github.com/indexcore/engine/internal/types"
)

// Job is one in-flight or completed Parse Job (spec §3's "ParseJob",
// state machine in spec §4.8). A Job is created by Submit and owned by
// the Scheduler until it reaches a terminal state.
type Job struct {
	Source types.SourceInformation
	Type   types.IndexType
	FileID types.FileID

	mu     sync.Mutex
	state  types.JobState
	cancel context.CancelFunc

	done chan struct{} // closed once the job reaches Done or Cancelled
}

func newJob(source types.SourceInformation, typ types.IndexType, fileID types.FileID) *Job {
	return &Job{
		Source: source,
		Type:   typ,
		FileID: fileID,
		state:  types.JobQueued,
		done:   make(chan struct{}),
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() types.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) setState(s types.JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// cancelIfPending cancels j if it is still Queued or Parsing (spec
// §4.8: Cancelled is reachable only from those two states — a job that
// has already handed its result to the Merger runs to completion).
// It reports whether the cancellation took effect.
func (j *Job) cancelIfPending() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != types.JobQueued && j.state != types.JobParsing {
		return false
	}
	j.state = types.JobCancelled
	if j.cancel != nil {
		j.cancel()
	}
	return true
}

// Wait blocks until the job reaches Done or Cancelled.
func (j *Job) Wait() {
	<-j.done
}
