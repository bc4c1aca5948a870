package worker

// Worker runs jobs handed to it by the dispatcher, one at a time.
type Worker struct {
	id         int
	pool       *jobChannelPool
	jobChannel chan *Job
}

func NewWorker(id int, pool *jobChannelPool) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		jobChannel: make(chan *Job),
	}
}

// Start registers the worker as idle and serves jobs until it receives a
// nil job or the pool refuses to take it back.
func (w *Worker) Start() {
	if !w.pool.Release(w.jobChannel) {
		w.pool.retire(w.jobChannel)
		return
	}
	go func() {
		for job := range w.jobChannel {
			if job == nil {
				w.pool.retire(w.jobChannel)
				return
			}
			job.run()
			w.pool.complete(job)
			if !w.pool.Release(w.jobChannel) {
				w.pool.retire(w.jobChannel)
				return
			}
		}
	}()
}
