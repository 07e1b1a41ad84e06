package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ledger-service/internal/logger"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("dispatcher is closed")
)

const (
	defaultMaxRetries     = 3
	defaultDeliverTimeout = 5 * time.Second
)

// Dispatcher decouples request handling from the broker: Publish only enqueues,
// a single worker delivers to the wrapped publisher with retries.
type Dispatcher struct {
	next       Publisher
	queue      chan Event
	logger     *logger.Logger
	newBackOff func() backoff.BackOff
	timeout    time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type DispatcherOption func(*Dispatcher)

// WithBackOff replaces the retry policy. A new policy is built for every event.
func WithBackOff(fn func() backoff.BackOff) DispatcherOption {
	return func(d *Dispatcher) {
		d.newBackOff = fn
	}
}

func WithDeliverTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func NewDispatcher(next Publisher, buffer int, log *logger.Logger, opts ...DispatcherOption) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		next:   next,
		queue:  make(chan Event, buffer),
		logger: log,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultMaxRetries)
		},
		timeout: defaultDeliverTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.run()
	return d
}

// Publish never blocks. When the queue is full the event is dropped.
func (d *Dispatcher) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.WithFields(map[string]interface{}{
			"kind":           event.Kind,
			"transaction_id": event.TransactionID,
		}).Warn("Notification queue full, dropping event")
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until queued ones are delivered or given up on.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		return d.next.Publish(ctx, event)
	}, d.newBackOff())

	if err != nil {
		d.logger.WithFields(map[string]interface{}{
			"kind":           event.Kind,
			"transaction_id": event.TransactionID,
			"attempts":       attempt,
		}).Error("Giving up on event delivery: %v", err)
	}
}
