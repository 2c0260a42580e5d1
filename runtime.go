package trackflow

import (
	"context"

	"github.com/trackflow/trackflow/bootstrap"
	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/runtime/engine"
	"github.com/trackflow/trackflow/runtime/instance"
	"github.com/trackflow/trackflow/service/assignment"
	"github.com/trackflow/trackflow/service/definition"
	"github.com/trackflow/trackflow/service/directory"
	"github.com/trackflow/trackflow/service/history"
	"github.com/trackflow/trackflow/service/notification"
	"github.com/trackflow/trackflow/service/task"
)

// Runtime exposes the workflow execution surface: definition management,
// instance lifecycle and the task manager.
type Runtime struct {
	definitions   *definition.Service
	loader        *definition.Loader
	history       *history.Service
	tasks         *task.Service
	resolver      *assignment.Resolver
	engine        *engine.Engine
	directory     directory.Directory
	notifier      notification.Notifier
	actions       *extension.Actions
	definitionURL string
}

// Definitions returns the definition store.
func (r *Runtime) Definitions() *definition.Service {
	return r.definitions
}

// Tasks returns the task manager.
func (r *Runtime) Tasks() *task.Service {
	return r.tasks
}

// Engine returns the execution engine.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

// Directory returns the identity directory.
func (r *Runtime) Directory() directory.Directory {
	return r.directory
}

// Notifier returns the notification sink.
func (r *Runtime) Notifier() notification.Notifier {
	return r.notifier
}

// EnsureDefaultWorkflow seeds and activates the baseline workflow definition
// unless any version of it already exists.
func (r *Runtime) EnsureDefaultWorkflow(ctx context.Context) error {
	return bootstrap.EnsureDefault(ctx, r.definitions)
}

// LoadDefinition loads a single YAML workflow definition from the given URL
// and stores it.
func (r *Runtime) LoadDefinition(ctx context.Context, URL string) (*model.Definition, error) {
	loaded, err := r.loader.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	if err = r.definitions.Create(ctx, loaded); err != nil {
		return nil, err
	}
	return loaded, nil
}

// LoadDefinitions loads every YAML workflow definition under the runtime's
// definition base URL, or the supplied URL when not empty.
func (r *Runtime) LoadDefinitions(ctx context.Context, URL string) ([]*model.Definition, error) {
	if URL == "" {
		URL = r.definitionURL
	}
	return r.loader.LoadAll(ctx, URL, r.definitions)
}

// CreateDefinition validates and stores a workflow definition.
func (r *Runtime) CreateDefinition(ctx context.Context, def *model.Definition) error {
	return r.definitions.Create(ctx, def)
}

// Definition returns a stored definition version.
func (r *Runtime) Definition(ctx context.Context, name, version string) (*model.Definition, error) {
	return r.definitions.Get(ctx, name, version)
}

// ActiveDefinition returns the active version of the named workflow.
func (r *Runtime) ActiveDefinition(ctx context.Context, name string) (*model.Definition, error) {
	return r.definitions.Active(ctx, name)
}

// NewDefinitionVersion clones an existing version into a new inactive one.
func (r *Runtime) NewDefinitionVersion(ctx context.Context, name, baseVersion, newVersion, createdBy string) (*model.Definition, error) {
	return r.definitions.NewVersion(ctx, name, baseVersion, newVersion, createdBy)
}

// ActivateDefinition makes the given version the single active one.
func (r *Runtime) ActivateDefinition(ctx context.Context, name, version, activatedBy string) error {
	return r.definitions.Activate(ctx, name, version, activatedBy)
}

// DeactivateDefinition deactivates whatever version of the workflow is
// active.
func (r *Runtime) DeactivateDefinition(ctx context.Context, name string) error {
	return r.definitions.Deactivate(ctx, name)
}

// DefinitionVersions lists all stored versions of the named workflow.
func (r *Runtime) DefinitionVersions(ctx context.Context, name string) ([]*model.Definition, error) {
	return r.definitions.Versions(ctx, name)
}

// StartWorkflow starts a new instance of the active version of the named
// workflow.
func (r *Runtime) StartWorkflow(ctx context.Context, workflowName, initiatorID string, data map[string]interface{}) (*instance.Instance, error) {
	return r.engine.Start(ctx, workflowName, initiatorID, data)
}

// FireEvent fires an event against a running instance.
func (r *Runtime) FireEvent(ctx context.Context, instanceID, event, userID, comment string, data map[string]interface{}) (*instance.Instance, error) {
	return r.engine.FireEvent(ctx, instanceID, event, userID, comment, data)
}

// FireReworkEvent fires an event after flagging the instance as being in
// rework.
func (r *Runtime) FireReworkEvent(ctx context.Context, instanceID, event, userID, reason string, skipAllowed bool) (*instance.Instance, error) {
	return r.engine.FireReworkEvent(ctx, instanceID, event, userID, reason, skipAllowed)
}

// Status returns the current status of an instance.
func (r *Runtime) Status(ctx context.Context, instanceID string) (*instance.Instance, error) {
	return r.engine.Status(ctx, instanceID)
}

// History returns the audit trail of an instance.
func (r *Runtime) History(ctx context.Context, instanceID string) ([]*instance.HistoryEntry, error) {
	return r.engine.History(ctx, instanceID)
}

// AcceptedEvents returns the events an instance accepts in its current
// state.
func (r *Runtime) AcceptedEvents(ctx context.Context, instanceID string) ([]string, error) {
	return r.engine.AcceptedEvents(ctx, instanceID)
}

// CompleteTask completes a task on behalf of its assignee.  The returned
// flag reports whether the owning group is now complete, telling the caller
// the workflow is ready for its next event; standalone tasks report true.
func (r *Runtime) CompleteTask(ctx context.Context, taskID, userID string, data map[string]interface{}) (bool, error) {
	return r.tasks.Complete(ctx, taskID, userID, data)
}

// DelegateTask reassigns a pending task to another user.
func (r *Runtime) DelegateTask(ctx context.Context, taskID, fromUserID, toUserID, reason string) error {
	return r.tasks.Delegate(ctx, taskID, fromUserID, toUserID, reason)
}

// EscalateTask records an escalation on a pending task.
func (r *Runtime) EscalateTask(ctx context.Context, taskID, byUserID, reason string) error {
	return r.tasks.Escalate(ctx, taskID, byUserID, reason)
}

// CreateReworkTask creates a rework task for the given instance.
func (r *Runtime) CreateReworkTask(ctx context.Context, instanceID, name, assignee, state string) (*task.Task, error) {
	return r.tasks.CreateReworkTask(ctx, instanceID, name, assignee, state)
}

// TasksForUser returns the user's tasks with the given status; an empty
// status selects all non-skipped tasks.
func (r *Runtime) TasksForUser(ctx context.Context, userID string, status task.Status) ([]*task.Task, error) {
	return r.tasks.TasksForUser(ctx, userID, status)
}

// TasksForInstance returns all tasks of an instance.
func (r *Runtime) TasksForInstance(ctx context.Context, instanceID string) ([]*task.Task, error) {
	return r.tasks.TasksForInstance(ctx, instanceID)
}

// Dashboard aggregates the user's task workload.
func (r *Runtime) Dashboard(ctx context.Context, userID string) (*task.Dashboard, error) {
	return r.tasks.DashboardFor(ctx, userID)
}

// TasksByFilter returns tasks matching the filter.
func (r *Runtime) TasksByFilter(ctx context.Context, filter *task.Filter) ([]*task.Task, error) {
	return r.tasks.TasksByFilter(ctx, filter)
}
