// Package memory provides a channel backed notification queue.  Nacked
// notifications are retried up to the configured limit and then parked on a
// dead letter list that tests and operators can inspect.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trackflow/trackflow/internal/clock"
	"github.com/trackflow/trackflow/internal/idgen"
	"github.com/trackflow/trackflow/service/notification"
)

// Config for the memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for the memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message implements notification.Message for the in-memory queue
type Message struct {
	id         string
	payload    notification.Notification
	queue      *Queue
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
}

// Notification returns the message payload
func (m *Message) Notification() *notification.Notification {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return nil
}

// Nack indicates a failure in processing the message
func (m *Message) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.retryCount++

	if m.retryCount <= m.queue.config.MaxRetries {
		go func() {
			time.Sleep(m.queue.config.RetryDelay)
			retried := &Message{
				id:         m.id,
				payload:    m.payload,
				queue:      m.queue,
				retryCount: m.retryCount,
				createdAt:  clock.Now(),
			}
			m.queue.messages <- retried
		}()
	} else if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue is a channel backed notification queue.  Notify never blocks
// workflow execution beyond the channel buffer.
type Queue struct {
	messages chan *Message
	dlq      []*Message
	config   Config
	dlqMu    sync.Mutex
}

// NewQueue creates a new in-memory notification queue
func NewQueue(config Config) *Queue {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue{
		messages: make(chan *Message, config.QueueBuffer),
		dlq:      make([]*Message, 0),
		config:   config,
	}
}

// Notify enqueues a notification for delivery.
func (q *Queue) Notify(ctx context.Context, n *notification.Notification) error {
	if n == nil {
		return fmt.Errorf("notification was nil")
	}
	if n.ID == "" {
		n.ID = idgen.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = clock.Now()
	}
	msg := &Message{
		id:        n.ID,
		payload:   *n,
		queue:     q,
		createdAt: n.CreatedAt,
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single notification from the queue
func (q *Queue) Consume(ctx context.Context) (notification.Message, error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of queued notifications
func (q *Queue) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of notifications on the dead letter list
func (q *Queue) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// ensure Queue implements the notifier interface
var _ notification.Notifier = (*Queue)(nil)
