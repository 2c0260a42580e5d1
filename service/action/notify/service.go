// Package notify implements the SEND_NOTIFICATION transition action.
package notify

import (
	"context"
	"fmt"
	"reflect"

	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/model/template"
	"github.com/trackflow/trackflow/service/notification"
	"github.com/viant/x"
)

// Parameters is the typed action config.  Message supports ${field}
// placeholders resolved against instance data; an empty recipient targets
// the initiator.
type Parameters struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// Handler emits a notification built from the action config.
type Handler struct {
	notifier notification.Notifier
	registry *extension.Actions
}

// New creates the notification handler.
func New(notifier notification.Notifier, registry *extension.Actions) *Handler {
	return &Handler{notifier: notifier, registry: registry}
}

func (h *Handler) Kind() model.ActionKind {
	return model.ActionSendNotification
}

func (h *Handler) InitTypes(types *extension.Types) {
	types.Register(x.NewType(reflect.TypeOf(Parameters{}), x.WithName("notify.Parameters")))
}

func (h *Handler) Exec(ctx context.Context, frame *extension.Frame) error {
	if h.notifier == nil {
		return nil
	}
	parameters := &Parameters{}
	if err := h.registry.DecodeConfig(frame.Config, parameters); err != nil {
		return fmt.Errorf("failed to decode notification config: %w", err)
	}
	recipient := parameters.Recipient
	if recipient == "" {
		recipient = frame.InitiatorID
	}
	return h.notifier.Notify(ctx, &notification.Notification{
		Recipient:  recipient,
		Subject:    parameters.Subject,
		Message:    template.Expand(parameters.Message, frame.Data),
		InstanceID: frame.InstanceID,
	})
}
