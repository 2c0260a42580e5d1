// Package process implements the COMPLETE_PROCESS transition action.
package process

import (
	"context"

	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/task"
)

// Handler force-completes the open tasks and groups of the instance when
// the process reaches its terminal transition.
type Handler struct {
	tasks *task.Service
}

// New creates the complete process handler.
func New(tasks *task.Service) *Handler {
	return &Handler{tasks: tasks}
}

func (h *Handler) Kind() model.ActionKind {
	return model.ActionCompleteProcess
}

func (h *Handler) Exec(ctx context.Context, frame *extension.Frame) error {
	return h.tasks.ForceCompleteOpen(ctx, frame.InstanceID)
}
