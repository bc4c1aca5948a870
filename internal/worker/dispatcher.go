package worker

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"visionchat/internal/metrics"
)

var (
	ErrDispatcherBusy   = errors.New("dispatcher queue is full")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

type keyQueue struct {
	jobs    []*Job
	running bool
}

// Dispatcher runs jobs on a bounded worker pool. Each key has its own FIFO
// queue and at most one running job; keys with pending work are served
// round-robin.
type Dispatcher struct {
	pool      *jobChannelPool
	logger    *zap.Logger
	queueSize int

	mu        sync.Mutex
	queues    map[string]*keyQueue
	ready     *list.List // keys with queued jobs and nothing running
	positions map[string]*list.Element
	pending   int
	closed    bool

	wake chan struct{}
	quit chan struct{}
}

func NewDispatcher(minWorkers, maxWorkers, queueSize int, idleTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		logger:    logger,
		queueSize: queueSize,
		queues:    make(map[string]*keyQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
	}
	d.pool = newJobChannelPool(minWorkers, maxWorkers, idleTimeout, d.complete, logger)

	for i := 0; i < minWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Do queues fn under key and blocks until it has run. If ctx ends while the
// job is still queued the job is withdrawn and ctx.Err() is returned; a job
// that already started is always waited for.
func (d *Dispatcher) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	job := newJob(ctx, key, fn)
	if err := d.enqueue(job); err != nil {
		return err
	}
	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		if job.cancel() {
			d.logger.Debug("job withdrawn before start", zap.String("key", key))
			return ctx.Err()
		}
		return <-job.done
	}
}

// Close stops dispatching. Queued jobs fail with ErrDispatcherClosed;
// running jobs finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	var dropped []*Job
	for key, q := range d.queues {
		dropped = append(dropped, q.jobs...)
		q.jobs = nil
		if !q.running {
			delete(d.queues, key)
		}
	}
	d.ready.Init()
	d.positions = make(map[string]*list.Element)
	d.pending = 0
	metrics.QueuedJobs.Set(0)
	d.mu.Unlock()

	close(d.quit)
	for _, job := range dropped {
		job.fail(ErrDispatcherClosed)
	}
	d.pool.close()
}

func (d *Dispatcher) run() {
	for {
		if d.dispatchOne() {
			continue
		}
		select {
		case <-d.wake:
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) enqueue(job *Job) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	if d.pending >= d.queueSize {
		d.mu.Unlock()
		return ErrDispatcherBusy
	}
	q := d.queues[job.Key]
	if q == nil {
		q = &keyQueue{}
		d.queues[job.Key] = q
	}
	q.jobs = append(q.jobs, job)
	d.pending++
	metrics.QueuedJobs.Set(float64(d.pending))
	if _, queued := d.positions[job.Key]; !queued && !q.running {
		d.positions[job.Key] = d.ready.PushBack(job.Key)
	}
	d.mu.Unlock()
	d.signal()
	return nil
}

// dispatchOne hands the next job of the front key to a worker.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	var job *Job
	for elem := d.ready.Front(); elem != nil && job == nil; elem = d.ready.Front() {
		key := elem.Value.(string)
		q := d.queues[key]
		for len(q.jobs) > 0 && job == nil {
			next := q.jobs[0]
			q.jobs = q.jobs[1:]
			d.pending--
			if !next.canceled() {
				job = next
			}
		}
		d.ready.Remove(elem)
		delete(d.positions, key)
		if job == nil {
			delete(d.queues, key)
			continue
		}
		q.running = true
	}
	metrics.QueuedJobs.Set(float64(d.pending))
	d.mu.Unlock()
	if job == nil {
		return false
	}

	ch := d.pool.acquire()
	if ch == nil {
		job.fail(ErrDispatcherClosed)
		d.complete(job)
		return false
	}
	d.logger.Debug("assign job", zap.String("key", job.Key), zap.Int("worker", d.pool.workerID(ch)))
	ch <- job
	return true
}

// complete releases the key of a finished job so its next job can run.
func (d *Dispatcher) complete(job *Job) {
	d.mu.Lock()
	q := d.queues[job.Key]
	if q != nil {
		q.running = false
		if len(q.jobs) > 0 && !d.closed {
			d.positions[job.Key] = d.ready.PushBack(job.Key)
		} else if len(q.jobs) == 0 {
			delete(d.queues, job.Key)
		}
	}
	d.mu.Unlock()
	d.signal()
}
