package detect

import (
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned by TryEnqueue when the consumer is lagging.
	ErrQueueFull = errors.New("response queue full")
	// ErrQueueClosed is returned by TryEnqueue after Close. Expected during
	// shutdown when the input side has already gone away.
	ErrQueueClosed = errors.New("response queue closed")
)

// ResponseQueue is a bounded FIFO of synthetic reply strings, produced by
// the prompt detector and consumed by the input multiplexer. Enqueue never
// blocks: the detector runs on the PTY read path and must not stall it.
type ResponseQueue struct {
	mu     sync.Mutex
	ch     chan string
	closed bool
}

// NewResponseQueue creates a queue holding up to capacity responses.
func NewResponseQueue(capacity int) *ResponseQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &ResponseQueue{ch: make(chan string, capacity)}
}

// TryEnqueue attempts a non-blocking enqueue.
func (q *ResponseQueue) TryEnqueue(response string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- response:
		return nil
	default:
		return ErrQueueFull
	}
}

// Ch returns the receive side. It is closed by Close once no more
// responses will arrive.
func (q *ResponseQueue) Ch() <-chan string {
	return q.ch
}

// Close marks the queue closed and closes the channel. Safe to call once.
func (q *ResponseQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
