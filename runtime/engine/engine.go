// Package engine executes workflow process instances: it starts them from
// the active definition version, fires events through the per-definition
// transition table and maintains the live instance map.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/internal/clock"
	"github.com/trackflow/trackflow/internal/idgen"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/model/condition"
	"github.com/trackflow/trackflow/runtime/instance"
	"github.com/trackflow/trackflow/service/dao"
	"github.com/trackflow/trackflow/service/definition"
	"github.com/trackflow/trackflow/service/history"
	"github.com/trackflow/trackflow/service/task"
	"github.com/trackflow/trackflow/tracing"
)

var (
	// ErrInvalidTransition is returned when no transition is declared for the
	// current state and the fired event.
	ErrInvalidTransition = errors.New("engine: invalid transition")

	// ErrTransitionGuarded is returned when transitions are declared but every
	// guard rejected the instance data.
	ErrTransitionGuarded = errors.New("engine: transition guarded")
)

// EventProcessStarted is the history event recorded when an instance starts.
const EventProcessStarted = "PROCESS_STARTED"

// Engine runs process instances against their workflow definitions.
type Engine struct {
	definitions *definition.Service
	history     *history.Service
	tasks       *task.Service
	actions     *extension.Actions

	mu     sync.Mutex
	live   map[string]*instance.Instance
	locks  map[string]*sync.Mutex
	tables map[string]*Table
}

// New creates an engine.
func New(definitions *definition.Service, historyService *history.Service, tasks *task.Service, actions *extension.Actions) *Engine {
	return &Engine{
		definitions: definitions,
		history:     historyService,
		tasks:       tasks,
		actions:     actions,
		live:        make(map[string]*instance.Instance),
		locks:       make(map[string]*sync.Mutex),
		tables:      make(map[string]*Table),
	}
}

// Start creates a new instance of the active version of the named workflow.
func (e *Engine) Start(ctx context.Context, workflowName, initiatorID string, data map[string]interface{}) (*instance.Instance, error) {
	ctx, span := tracing.StartSpan(ctx, "engine.start", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	active, err := e.definitions.Active(ctx, workflowName)
	if err != nil {
		return nil, err
	}
	initial := active.InitialState()
	if initial == nil {
		err = fmt.Errorf("workflow %v version %v had no initial state", active.Name, active.Version)
		return nil, err
	}
	now := clock.Now()
	id := idgen.New()
	seeded := map[string]interface{}{
		instance.KeyProcessInstanceID: id,
		instance.KeyInitiator:         initiatorID,
		instance.KeyRework:            false,
	}
	for k, v := range data {
		seeded[k] = v
	}
	created := instance.New(id, active.Name, active.Version, initial.Name, initiatorID, seeded, now)
	span.WithAttributes(map[string]string{"instance.id": id, "workflow.name": active.Name})

	e.mu.Lock()
	e.live[id] = created
	e.mu.Unlock()

	entry := &instance.HistoryEntry{
		InstanceID: id,
		ToState:    initial.Name,
		Event:      EventProcessStarted,
		UserID:     initiatorID,
		Context:    created.DataSnapshot(),
	}
	if err = e.history.Record(ctx, entry); err != nil {
		return nil, err
	}

	table := e.table(active)
	for _, transition := range table.Bootstrap() {
		if !e.guardPasses(transition, created, transition.Event) {
			continue
		}
		e.runAction(ctx, active, created, transition, initiatorID)
	}
	e.ensureInitialTasks(ctx, active, created, initial)
	return created.Clone(), nil
}

// ensureInitialTasks creates the task group of the initial state when
// starting produced no tasks.  States entered later get theirs through
// transition actions.
func (e *Engine) ensureInitialTasks(ctx context.Context, def *model.Definition, live *instance.Instance, initial *model.State) {
	if e.actions == nil || def.AssignmentForState(initial.Name) == nil {
		return
	}
	existing, err := e.tasks.TasksForInstance(ctx, live.ID)
	if err != nil {
		log.Printf("failed to list tasks of %v: %v", live.ID, err)
		return
	}
	if len(existing) > 0 {
		return
	}
	handler := e.actions.Lookup(model.ActionCreateTaskGroup)
	if handler == nil {
		return
	}
	frame := &extension.Frame{
		InstanceID:      live.ID,
		WorkflowName:    def.Name,
		WorkflowVersion: def.Version,
		InitiatorID:     live.InitiatorID,
		UserID:          live.InitiatorID,
		ToState:         initial.Name,
		Event:           EventProcessStarted,
		Data:            live.DataSnapshot(),
	}
	if err := handler.Exec(ctx, frame); err != nil {
		log.Printf("initial task creation for %v failed: %v", live.ID, err)
	}
}

// FireEvent fires an event against a live instance.  Event processing per
// instance is serialized; callers racing on the same instance are ordered by
// the per-instance lock.
func (e *Engine) FireEvent(ctx context.Context, instanceID, event, userID, comment string, data map[string]interface{}) (*instance.Instance, error) {
	ctx, span := tracing.StartSpan(ctx, "engine.fireEvent", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"instance.id": instanceID, "event": event})

	lock := e.instanceLock(instanceID)
	lock.Lock()
	defer lock.Unlock()

	live, err := e.liveInstance(instanceID)
	if err != nil {
		return nil, err
	}
	def, err := e.definitions.Get(ctx, live.WorkflowName, live.WorkflowVersion)
	if err != nil {
		return nil, err
	}
	table := e.table(def)
	candidates := table.Lookup(live.GetState(), event)
	if len(candidates) == 0 {
		err = fmt.Errorf("no transition from %v on %v: %w", live.GetState(), event, ErrInvalidTransition)
		return nil, err
	}

	// evaluate guards against current data plus the incoming payload; the
	// instance itself stays untouched until a candidate is selected
	evaluation := live.DataSnapshot()
	for k, v := range data {
		evaluation[k] = v
	}
	var selected *model.Transition
	for _, candidate := range candidates {
		ambient := map[string]interface{}{
			condition.KeyCurrentState: candidate.FromState,
			condition.KeyTargetState:  candidate.ToState,
			condition.KeyEvent:        event,
		}
		if condition.Evaluate(candidate.Guard, evaluation, ambient) {
			selected = candidate
			break
		}
	}
	if selected == nil {
		err = fmt.Errorf("all transitions from %v on %v rejected: %w", live.GetState(), event, ErrTransitionGuarded)
		return nil, err
	}

	now := clock.Now()
	fromState := live.GetState()
	live.MergeData(data)
	live.MergeData(selected.Data)
	live.SetState(selected.ToState, now)

	entry := &instance.HistoryEntry{
		InstanceID: instanceID,
		FromState:  fromState,
		ToState:    selected.ToState,
		Event:      event,
		UserID:     userID,
		Comment:    comment,
		Context:    live.DataSnapshot(),
	}
	if err = e.history.Record(ctx, entry); err != nil {
		return nil, err
	}

	if e.reworkSkipsState(ctx, live, selected.ToState) {
		log.Printf("rework re-entered approved state %v of %v, prior approval stands", selected.ToState, instanceID)
	} else {
		e.runAction(ctx, def, live, selected, userID)
	}

	if def.IsEndState(selected.ToState) {
		live.Finish(now)
		if completeErr := e.tasks.ForceCompleteOpen(ctx, instanceID); completeErr != nil {
			log.Printf("failed to force complete open tasks of %v: %v", instanceID, completeErr)
		}
	}
	return live.Clone(), nil
}

// FireReworkEvent fires an event after flagging the instance as being in
// rework.  Guards can inspect isRework, reworkSkipAllowed and reworkReason.
func (e *Engine) FireReworkEvent(ctx context.Context, instanceID, event, userID, reason string, skipAllowed bool) (*instance.Instance, error) {
	data := map[string]interface{}{
		instance.KeyRework:       true,
		instance.KeyReworkSkip:   skipAllowed,
		instance.KeyReworkReason: reason,
	}
	return e.FireEvent(ctx, instanceID, event, userID, reason, data)
}

// Status returns the current status of an instance.  Terminated and evicted
// instances are reconstructed from their last history entry.
func (e *Engine) Status(ctx context.Context, instanceID string) (*instance.Instance, error) {
	e.mu.Lock()
	live := e.live[instanceID]
	e.mu.Unlock()
	if live != nil {
		return live.Clone(), nil
	}
	last, err := e.history.Last(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, fmt.Errorf("instance %v: %w", instanceID, dao.ErrNotFound)
	}
	data := make(map[string]interface{}, len(last.Context))
	for k, v := range last.Context {
		data[k] = v
	}
	ret := &instance.Instance{
		ID:        instanceID,
		State:     last.ToState,
		Active:    false,
		Data:      data,
		UpdatedAt: last.At,
	}
	if initiator, ok := last.Context[instance.KeyInitiator].(string); ok {
		ret.InitiatorID = initiator
	}
	return ret, nil
}

// History returns the audit trail of an instance in chronological order.
func (e *Engine) History(ctx context.Context, instanceID string) ([]*instance.HistoryEntry, error) {
	entries, err := e.history.List(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("instance %v: %w", instanceID, dao.ErrNotFound)
	}
	return entries, nil
}

// Evict drops terminated instances from the live map and returns how many
// were dropped.  Their history remains queryable.
func (e *Engine) Evict(ctx context.Context) int {
	_, span := tracing.StartSpan(ctx, "engine.evict", "INTERNAL")
	defer tracing.EndSpan(span, nil)

	e.mu.Lock()
	defer e.mu.Unlock()
	evicted := 0
	for id, live := range e.live {
		if !live.IsActive() {
			delete(e.live, id)
			delete(e.locks, id)
			evicted++
		}
	}
	return evicted
}

// AcceptedEvents returns the events the instance accepts in its current
// state.
func (e *Engine) AcceptedEvents(ctx context.Context, instanceID string) ([]string, error) {
	live, err := e.liveInstance(instanceID)
	if err != nil {
		return nil, err
	}
	def, err := e.definitions.Get(ctx, live.WorkflowName, live.WorkflowVersion)
	if err != nil {
		return nil, err
	}
	return e.table(def).Events(live.GetState()), nil
}

func (e *Engine) liveInstance(instanceID string) (*instance.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	live := e.live[instanceID]
	if live == nil {
		return nil, fmt.Errorf("instance %v: %w", instanceID, dao.ErrNotFound)
	}
	return live, nil
}

func (e *Engine) instanceLock(instanceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[instanceID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[instanceID] = lock
	}
	return lock
}

// table returns the cached transition table of a definition version.
func (e *Engine) table(def *model.Definition) *Table {
	key := def.Key()
	e.mu.Lock()
	defer e.mu.Unlock()
	if cached, ok := e.tables[key]; ok {
		return cached
	}
	built := NewTable(def)
	e.tables[key] = built
	return built
}

// reworkSkipsState reports whether re-entering the target state during a
// rework cycle keeps a prior approval instead of creating fresh tasks.
// Forced system completions do not count as approvals.
func (e *Engine) reworkSkipsState(ctx context.Context, live *instance.Instance, toState string) bool {
	if !live.Rework() || !live.ReworkSkipAllowed() {
		return false
	}
	existing, err := e.tasks.TasksForInstance(ctx, live.ID)
	if err != nil {
		return false
	}
	for _, candidate := range existing {
		if candidate.State == toState && candidate.Status == task.StatusCompleted && candidate.CompletedBy != "system" {
			return true
		}
	}
	return false
}

func (e *Engine) guardPasses(transition *model.Transition, live *instance.Instance, event string) bool {
	ambient := map[string]interface{}{
		condition.KeyCurrentState: transition.FromState,
		condition.KeyTargetState:  transition.ToState,
		condition.KeyEvent:        event,
	}
	return condition.Evaluate(transition.Guard, live.DataSnapshot(), ambient)
}

// runAction executes the transition action through the registry.  Action
// failures are logged and never roll the transition back.
func (e *Engine) runAction(ctx context.Context, def *model.Definition, live *instance.Instance, transition *model.Transition, userID string) {
	if transition.Action == nil || e.actions == nil {
		return
	}
	handler := e.actions.Lookup(transition.Action.Kind)
	if handler == nil {
		log.Printf("unknown action kind %v on transition %v -> %v", transition.Action.Kind, transition.FromState, transition.ToState)
		return
	}
	frame := &extension.Frame{
		InstanceID:      live.ID,
		WorkflowName:    def.Name,
		WorkflowVersion: def.Version,
		InitiatorID:     live.InitiatorID,
		UserID:          userID,
		FromState:       transition.FromState,
		ToState:         transition.ToState,
		Event:           transition.Event,
		Data:            live.DataSnapshot(),
		Config:          transition.Action.Config,
	}
	if err := handler.Exec(ctx, frame); err != nil {
		log.Printf("action %v on %v -> %v failed: %v", transition.Action.Kind, transition.FromState, transition.ToState, err)
	}
}
