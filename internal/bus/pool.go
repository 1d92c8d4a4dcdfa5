package bus

import "sync"

// Pool runs submitted tasks on a fixed set of workers over a buffered
// queue. Closing waits for in-flight tasks to finish.
type Pool struct {
	tasks chan func()

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts workers goroutines draining a queue of queueSize slots.
// queueSize <= 0 gets a generous default; actual admission control happens
// at dispatch via the run monitor, not here.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	p := &Pool{tasks: make(chan func(), queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit queues a task, blocking when the queue is full. It must not be
// called after Close.
func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Close stops accepting work and waits for queued tasks to drain.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.tasks) })
	p.wg.Wait()
}
