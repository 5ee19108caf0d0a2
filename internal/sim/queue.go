package sim

import "sync"

// commandQueue is a thread-safe FIFO of commands.
//
// The queue uses a channel for signaling so the Run loop can wait for
// commands and context cancellation in one select.
type commandQueue struct {
	mu       sync.Mutex
	commands []Command
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		commands: make([]Command, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a command to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(c Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.commands = append(q.commands, c)
	q.notify()
	return true
}

// notify must be called with mu held.
func (q *commandQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TakeTurn removes the first queued command of every actor and returns
// them in queue order. Later commands of the same actor stay queued, in
// order, for the following ticks.
func (q *commandQueue) TakeTurn() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var taken, rest []Command
	for _, c := range q.commands {
		if seen[c.Actor] {
			rest = append(rest, c)
			continue
		}
		seen[c.Actor] = true
		taken = append(taken, c)
	}

	clear(q.commands)
	q.commands = append(q.commands[:0], rest...)
	if len(q.commands) > 0 && !q.closed {
		q.notify()
	}
	return taken
}

// Wait returns a channel that signals when commands may be available.
// It is closed when the queue is closed.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands)
}

// Closed reports whether Close has been called.
func (q *commandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting commands and wakes any waiter.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
