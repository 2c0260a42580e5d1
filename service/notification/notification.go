// Package notification defines the fire-and-forget notification
// collaborator.  Task creation, delegation and SEND_NOTIFICATION actions
// emit notifications; delivery failures never affect workflow execution.
package notification

import (
	"context"
	"time"
)

// Notification is a single message to a recipient.
type Notification struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject,omitempty"`
	Message    string    `json:"message"`
	InstanceID string    `json:"instanceId,omitempty"`
	TaskID     string    `json:"taskId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification *Notification) error
}

// Message represents a notification retrieved from a queue.
type Message interface {
	// Notification returns the payload of this message
	Notification() *Notification

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}
