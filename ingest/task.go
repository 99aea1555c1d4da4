package ingest

import (
	"context"

	"github.com/professorSergio12/Stock-Broker/models"
)

// Task is a running import. The pipeline owns its own context, so it outlives
// the request that submitted it.
type Task struct {
	ID string

	done   chan struct{}
	cancel context.CancelFunc
	job    models.ImportJob
	err    error
}

// Done is closed once the job reaches completed or error.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns the final job state.
func (t *Task) Wait() (models.ImportJob, error) {
	<-t.done
	return t.job, t.err
}

// Cancel stops the pipeline before its next batch. Rows already written stay.
func (t *Task) Cancel() {
	t.cancel()
}
