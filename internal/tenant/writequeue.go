package tenant

import "sync"

// writeQueue serializes persist() calls so that awaited updates and
// fire-and-forget updates (lastUsedAt bumps) never interleave and never
// produce a torn write. It's a "chain of pending writes": each submitted
// job runs only after the previous one has finished, success or failure.
type writeQueue struct {
	mu   sync.Mutex
	tail chan struct{}
}

func newWriteQueue() *writeQueue {
	done := make(chan struct{})
	close(done)
	return &writeQueue{tail: done}
}

// run serializes fn behind the current tail and blocks until fn has run,
// returning its error. Used for operations the caller awaits.
func (q *writeQueue) run(fn func() error) error {
	errCh := make(chan error, 1)
	q.submit(func() { errCh <- fn() })
	return <-errCh
}

// submit schedules fn to run after every previously submitted job has
// completed, without waiting for it itself. Used for fire-and-forget
// updates; errors are the caller's responsibility to handle inside fn.
func (q *writeQueue) submit(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev := q.tail
	next := make(chan struct{})
	q.tail = next
	go func() {
		<-prev
		defer close(next)
		fn()
	}()
}
