package trackflow

import (
	"github.com/trackflow/trackflow/runtime/engine"
	"github.com/trackflow/trackflow/service/dao"
	"github.com/trackflow/trackflow/service/definition"
	"github.com/trackflow/trackflow/service/task"
)

// Domain errors re-exported at the module root so that callers can match
// them with errors.Is without importing the individual service packages.

var (
	// ErrNotFound is returned when the requested instance, task or
	// definition does not exist.
	ErrNotFound = dao.ErrNotFound

	// ErrInvalidState indicates an operation was attempted against an
	// entity that is not in a state accepting it, e.g. completing an
	// already completed task.
	ErrInvalidState = task.ErrInvalidState

	// ErrUnauthorized indicates the acting user is not the assignee of the
	// task being operated on.
	ErrUnauthorized = task.ErrUnauthorized

	// ErrInvalidTransition is returned when no transition is declared for
	// the current state and the fired event.
	ErrInvalidTransition = engine.ErrInvalidTransition

	// ErrTransitionGuarded is returned when transitions exist for the
	// current state and event but every guard rejected the instance data.
	ErrTransitionGuarded = engine.ErrTransitionGuarded

	// ErrNoActiveWorkflow is returned when a workflow name has no active
	// version.
	ErrNoActiveWorkflow = definition.ErrNoActiveWorkflow

	// ErrInvalidAssignee indicates the target user of a delegation is not
	// known to the identity directory.
	ErrInvalidAssignee = task.ErrInvalidAssignee
)
