// Package assign implements the CREATE_TASK_GROUP and CREATE_TASK
// transition actions: it resolves the assignment rule of the target state
// and creates the task group or single task for it.
package assign

import (
	"context"
	"fmt"
	"log"
	"reflect"

	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/assignment"
	"github.com/trackflow/trackflow/service/definition"
	"github.com/trackflow/trackflow/service/task"
	"github.com/viant/x"
)

// Parameters is the typed action config.
type Parameters struct {
	GroupName string `json:"groupName,omitempty"`
	TaskName  string `json:"taskName,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// Service carries the collaborators shared by both handlers.
type Service struct {
	definitions *definition.Service
	resolver    *assignment.Resolver
	tasks       *task.Service
	registry    *extension.Actions
}

// New creates the assign action service.
func New(definitions *definition.Service, resolver *assignment.Resolver, tasks *task.Service, registry *extension.Actions) *Service {
	return &Service{definitions: definitions, resolver: resolver, tasks: tasks, registry: registry}
}

// GroupHandler executes CREATE_TASK_GROUP.
type GroupHandler struct {
	*Service
}

// NewGroupHandler creates the group handler.
func (s *Service) NewGroupHandler() *GroupHandler {
	return &GroupHandler{Service: s}
}

func (h *GroupHandler) Kind() model.ActionKind {
	return model.ActionCreateTaskGroup
}

func (h *GroupHandler) InitTypes(types *extension.Types) {
	types.Register(x.NewType(reflect.TypeOf(Parameters{}), x.WithName("assign.Parameters")))
}

func (h *GroupHandler) Exec(ctx context.Context, frame *extension.Frame) error {
	parameters := &Parameters{}
	if err := h.registry.DecodeConfig(frame.Config, parameters); err != nil {
		return fmt.Errorf("failed to decode task group config: %w", err)
	}
	rule, assignees, err := h.resolve(ctx, frame)
	if err != nil {
		return err
	}
	if rule == nil || len(assignees) == 0 {
		return nil
	}
	strategy := rule.Strategy
	if parameters.Strategy != "" {
		strategy = model.CompletionStrategy(parameters.Strategy)
	}
	name := parameters.GroupName
	if name == "" {
		name = groupName(rule, frame.ToState)
	}
	_, _, err = h.tasks.CreateGroup(ctx, frame.InstanceID, frame.ToState, name, assignees, strategy, rule.Template, frame.Data)
	return err
}

// SingleHandler executes CREATE_TASK: one task for the first resolved
// assignee.
type SingleHandler struct {
	*Service
}

// NewSingleHandler creates the single task handler.
func (s *Service) NewSingleHandler() *SingleHandler {
	return &SingleHandler{Service: s}
}

func (h *SingleHandler) Kind() model.ActionKind {
	return model.ActionCreateTask
}

func (h *SingleHandler) Exec(ctx context.Context, frame *extension.Frame) error {
	parameters := &Parameters{}
	if err := h.registry.DecodeConfig(frame.Config, parameters); err != nil {
		return fmt.Errorf("failed to decode task config: %w", err)
	}
	rule, assignees, err := h.resolve(ctx, frame)
	if err != nil {
		return err
	}
	if rule == nil || len(assignees) == 0 {
		return nil
	}
	name := parameters.TaskName
	if name == "" {
		name = groupName(rule, frame.ToState)
	}
	_, err = h.tasks.CreateTask(ctx, frame.InstanceID, frame.ToState, name, assignees[0], rule.Template, frame.Data)
	return err
}

// resolve loads the assignment rule of the target state and resolves its
// assignees.  A missing rule or an empty resolution is logged and skipped,
// not treated as an error.
func (s *Service) resolve(ctx context.Context, frame *extension.Frame) (*model.AssignmentRule, []string, error) {
	def, err := s.definitions.Get(ctx, frame.WorkflowName, frame.WorkflowVersion)
	if err != nil {
		return nil, nil, err
	}
	rule := def.AssignmentForState(frame.ToState)
	if rule == nil {
		log.Printf("no assignment rule for state %v, skipping task creation", frame.ToState)
		return nil, nil, nil
	}
	assignees, err := s.resolver.Resolve(ctx, rule)
	if err != nil {
		return nil, nil, err
	}
	if len(assignees) == 0 {
		log.Printf("assignment rule for state %v resolved no assignees, skipping task creation", frame.ToState)
	}
	return rule, assignees, nil
}

func groupName(rule *model.AssignmentRule, state string) string {
	if rule.Template != nil && rule.Template.Name != "" {
		return rule.Template.Name
	}
	return state
}
