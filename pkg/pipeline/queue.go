// Package pipeline implements the conversational turn pipeline: one voice
// recording is driven through transcription, reasoning, voice-switch
// resolution, speech synthesis, and a durable append, with per-conversation
// ordering, idempotent retries, and compensating cleanup on partial failure.
package pipeline

import (
	"sync"
)

// KeyedQueue serializes task execution per key while letting different keys
// run concurrently. Tasks for one key run strictly in submission order, one
// at a time; a failing task never blocks the tasks queued behind it.
//
// A worker goroutine is started lazily for a key on first submission, drains
// that key's queue, and exits once the queue is empty, so idle keys hold no
// memory. The next submission recreates the worker.
type KeyedQueue struct {
	mu      sync.Mutex
	pending map[string][]func()
}

// NewKeyedQueue creates an empty queue.
func NewKeyedQueue() *KeyedQueue {
	return &KeyedQueue{pending: make(map[string][]func())}
}

// Submit enqueues fn for key and returns immediately. fn is responsible for
// delivering its own result to whoever is waiting on it.
func (q *KeyedQueue) Submit(key string, fn func()) {
	q.mu.Lock()
	queue, running := q.pending[key]
	q.pending[key] = append(queue, fn)
	q.mu.Unlock()

	if !running {
		go q.drain(key)
	}
}

// drain runs the key's tasks in FIFO order until the queue empties, then
// removes the key entirely. The presence of the key in the map doubles as
// the "worker alive" flag, so the delete below must happen under the same
// lock that Submit appends under.
func (q *KeyedQueue) drain(key string) {
	for {
		q.mu.Lock()
		queue := q.pending[key]
		if len(queue) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		fn := queue[0]
		q.pending[key] = queue[1:]
		q.mu.Unlock()

		fn()
	}
}

// ActiveKeys reports how many keys currently have a live worker. Used by
// tests to verify drained queues are dropped.
func (q *KeyedQueue) ActiveKeys() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
