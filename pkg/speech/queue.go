package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Queue is an unbounded FIFO of text drained by a single worker.
// Enqueue is safe for concurrent use and never blocks.
type Queue struct {
	speaker Speaker
	logger  *slog.Logger

	mu     sync.Mutex
	items  []string
	closed bool
	wake   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue starts the worker.
func NewQueue(speaker Speaker, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		speaker: speaker,
		logger:  logger.With("component", "speech.queue"),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue adds text to the back of the queue.
func (q *Queue) Enqueue(text string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, text)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of items waiting to be spoken.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting items and waits for the worker to speak what is
// left. If ctx ends first, the item being spoken is cancelled, the rest are
// dropped and ctx.Err() is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		dropped := q.Len()
		q.cancel()
		q.logger.Warn("speech queue not drained", "dropped", dropped)
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	defer q.cancel()

	for {
		text, ok := q.next()
		if !ok {
			return
		}
		q.speak(text)
	}
}

// next blocks until an item is available or the queue is closed and empty.
func (q *Queue) next() (string, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			text := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			q.mu.Unlock()
			return text, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", false
		}

		select {
		case <-q.wake:
		case <-q.ctx.Done():
			return "", false
		}
	}
}

func (q *Queue) speak(text string) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("speaker panicked", "panic", fmt.Sprint(r))
		}
	}()

	if err := q.speaker.Speak(q.ctx, text); err != nil {
		q.logger.Error("speak failed", "error", err, "text", text)
	}
}
