package pipeline

import "sync"

// DefaultWorkers is the number of formatting workers per job.
const DefaultWorkers = 8

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewWorkerPool starts workers goroutines. backlog is how many submitted
// tasks may wait for a free worker before Submit blocks.
func NewWorkerPool(workers, backlog int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if backlog < 0 {
		backlog = 0
	}
	p := &WorkerPool{tasks: make(chan func(), backlog)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit queues task. It must not be called after Shutdown.
func (p *WorkerPool) Submit(task func()) {
	p.tasks <- task
}

// Shutdown stops accepting work and waits, without a time limit, for every
// queued task to finish.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}
