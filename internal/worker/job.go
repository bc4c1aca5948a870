package worker

import (
	"context"
	"fmt"
	"sync/atomic"
)

const (
	jobQueued int32 = iota
	jobRunning
	jobCanceled
)

// Job is one unit of work submitted for a key. Jobs sharing a key run one
// at a time in submission order.
type Job struct {
	Key   string
	ctx   context.Context
	fn    func(context.Context) error
	state atomic.Int32
	done  chan error
}

func newJob(ctx context.Context, key string, fn func(context.Context) error) *Job {
	return &Job{
		Key:  key,
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}
}

// cancel withdraws a job that has not started yet.
func (j *Job) cancel() bool {
	return j.state.CompareAndSwap(jobQueued, jobCanceled)
}

func (j *Job) canceled() bool {
	return j.state.Load() == jobCanceled
}

func (j *Job) fail(err error) {
	if j.cancel() {
		j.done <- err
	}
}

func (j *Job) run() {
	if !j.state.CompareAndSwap(jobQueued, jobRunning) {
		return
	}
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Key, r)
		}
		j.done <- err
	}()
	if err = j.ctx.Err(); err != nil {
		return
	}
	err = j.fn(j.ctx)
}
