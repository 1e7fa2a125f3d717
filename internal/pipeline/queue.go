package pipeline

import "sync"

// Command is a request executed on the consumer goroutine.
type Command func()

// Queue is an unbounded FIFO of commands with one producer and one
// consumer. Push never blocks on the consumer.
type Queue struct {
	mu      sync.Mutex
	pending []Command
	spare   []Command
}

// Push appends cmd.
func (q *Queue) Push(cmd Command) {
	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs every command queued at the time of the call, oldest first,
// and returns how many ran. Commands pushed while draining wait for the
// next call.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = q.spare[:0]
	q.mu.Unlock()

	for i, cmd := range batch {
		cmd()
		batch[i] = nil
	}

	q.mu.Lock()
	q.spare = batch[:0]
	q.mu.Unlock()
	return len(batch)
}

// Clear drops every queued command.
func (q *Queue) Clear() {
	q.mu.Lock()
	clear(q.pending)
	q.pending = q.pending[:0]
	q.mu.Unlock()
}
