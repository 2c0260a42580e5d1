package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/action/assign"
	"github.com/trackflow/trackflow/service/action/process"
	"github.com/trackflow/trackflow/service/assignment"
	"github.com/trackflow/trackflow/service/dao"
	"github.com/trackflow/trackflow/service/definition"
	"github.com/trackflow/trackflow/service/directory"
	"github.com/trackflow/trackflow/service/history"
	"github.com/trackflow/trackflow/service/task"
)

type testFixture struct {
	engine      *Engine
	definitions *definition.Service
	history     *history.Service
	tasks       *task.Service
}

func newFixture(t *testing.T, def *model.Definition) *testFixture {
	t.Helper()
	ctx := context.Background()
	definitions := definition.New()
	if err := definitions.Create(ctx, def); err != nil {
		t.Fatal(err)
	}
	if err := definitions.Activate(ctx, def.Name, def.Version, "system"); err != nil {
		t.Fatal(err)
	}
	historyService := history.New()
	dir := directory.NewStatic()
	tasks := task.New(historyService, dir, nil)
	resolver := assignment.New(dir)

	actions := extension.NewActions()
	assignService := assign.New(definitions, resolver, tasks, actions)
	actions.Register(assignService.NewGroupHandler())
	actions.Register(assignService.NewSingleHandler())
	actions.Register(process.New(tasks))

	return &testFixture{
		engine:      New(definitions, historyService, tasks, actions),
		definitions: definitions,
		history:     historyService,
		tasks:       tasks,
	}
}

func reviewDefinition() *model.Definition {
	return model.NewDefinition("review-flow", "1.0.0").
		WithState(&model.State{Name: "S0", Kind: model.StateInitial, Order: 1}).
		WithState(&model.State{Name: "S1", Kind: model.StateNormal, Order: 2}).
		WithState(&model.State{Name: "S2", Kind: model.StateNormal, Order: 3}).
		WithState(&model.State{Name: "DONE", Kind: model.StateEnd, Order: 4}).
		WithTransition(&model.Transition{
			FromState: "S0", ToState: "S2", Event: "SUBMIT",
			Guard: `{"amount": {"$lt": 500}}`, Order: 1,
		}).
		WithTransition(&model.Transition{
			FromState: "S0", ToState: "S1", Event: "SUBMIT",
			Guard: `{"amount": {"$gte": 500}}`, Order: 2,
		}).
		WithTransition(&model.Transition{FromState: "S1", ToState: "S2", Event: "APPROVE"}).
		WithTransition(&model.Transition{FromState: "S2", ToState: "DONE", Event: "FINISH"}).
		WithTransition(&model.Transition{
			FromState: "S2", ToState: "S0", Event: "REWORK",
			Guard: `{"isRework": true}`,
		}).
		WithAssignment(&model.AssignmentRule{
			State:    "S1",
			Type:     model.AssignmentRole,
			Config:   map[string]interface{}{"roles": []interface{}{"FINANCE_APPROVER"}},
			Strategy: model.AllRequired,
		})
}

func TestEngine_StartAndStatus(t *testing.T) {
	ctx := context.Background()
	fixture := newFixture(t, reviewDefinition())

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 750})
	assert.NoError(t, err)
	assert.EqualValues(t, "S0", started.State)
	assert.True(t, started.Active)

	status, err := fixture.engine.Status(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, "S0", status.State)

	entries, err := fixture.engine.History(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, len(entries))
	assert.EqualValues(t, EventProcessStarted, entries[0].Event)
}

func TestEngine_StartRequiresActiveVersion(t *testing.T) {
	ctx := context.Background()
	definitions := definition.New()
	historyService := history.New()
	tasks := task.New(historyService, directory.NewStatic(), nil)
	eng := New(definitions, historyService, tasks, extension.NewActions())

	_, err := eng.Start(ctx, "missing-flow", "U1000", nil)
	assert.True(t, errors.Is(err, definition.ErrNoActiveWorkflow))
}

func TestEngine_FireEventGuardOrdering(t *testing.T) {
	ctx := context.Background()
	fixture := newFixture(t, reviewDefinition())

	// high amount takes the guarded branch to S1
	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 750})
	assert.NoError(t, err)
	moved, err := fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
	assert.NoError(t, err)
	assert.EqualValues(t, "S1", moved.State)

	// low amount takes the first candidate to S2
	cheap, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 100})
	assert.NoError(t, err)
	moved, err = fixture.engine.FireEvent(ctx, cheap.ID, "SUBMIT", "U1000", "", nil)
	assert.NoError(t, err)
	assert.EqualValues(t, "S2", moved.State)
}

func TestEngine_FireEventErrors(t *testing.T) {
	ctx := context.Background()
	fixture := newFixture(t, reviewDefinition())

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 750})
	assert.NoError(t, err)

	// unknown instance
	_, err = fixture.engine.FireEvent(ctx, "no-such-instance", "SUBMIT", "U1000", "", nil)
	assert.True(t, errors.Is(err, dao.ErrNotFound))

	// undeclared event
	_, err = fixture.engine.FireEvent(ctx, started.ID, "NO_SUCH_EVENT", "U1000", "", nil)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	// guarded rework event: isRework not set, so every guard rejects
	moved, err := fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
	assert.NoError(t, err)
	assert.EqualValues(t, "S1", moved.State)
	moved, err = fixture.engine.FireEvent(ctx, moved.ID, "APPROVE", "U1004", "", nil)
	assert.NoError(t, err)
	assert.EqualValues(t, "S2", moved.State)
	_, err = fixture.engine.FireEvent(ctx, started.ID, "REWORK", "U1000", "", nil)
	assert.True(t, errors.Is(err, ErrTransitionGuarded))

	// the guard rejection left state and history untouched
	status, err := fixture.engine.Status(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, "S2", status.State)
	entries, err := fixture.engine.History(ctx, started.ID)
	assert.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqualValues(t, "REWORK", entry.Event)
	}
}

func TestEngine_FireReworkEvent(t *testing.T) {
	ctx := context.Background()
	fixture := newFixture(t, reviewDefinition())

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 100})
	assert.NoError(t, err)
	_, err = fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
	assert.NoError(t, err)

	moved, err := fixture.engine.FireReworkEvent(ctx, started.ID, "REWORK", "U1003", "missing figures", true)
	assert.NoError(t, err)
	assert.EqualValues(t, "S0", moved.State)
	assert.EqualValues(t, true, moved.Data["isRework"])
	assert.EqualValues(t, true, moved.Data["reworkSkipAllowed"])
	assert.EqualValues(t, "missing figures", moved.Data["reworkReason"])
}

func TestEngine_TransitionActionCreatesTasks(t *testing.T) {
	ctx := context.Background()
	def := reviewDefinition()
	// attach the task group action to the S0 -> S1 transition
	def.Transitions[1].Action = &model.ActionConfig{Kind: model.ActionCreateTaskGroup}
	fixture := newFixture(t, def)

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 750})
	assert.NoError(t, err)
	_, err = fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
	assert.NoError(t, err)

	created, err := fixture.tasks.TasksForInstance(ctx, started.ID)
	assert.NoError(t, err)
	// one task per FINANCE_APPROVER in the directory
	assert.EqualValues(t, 2, len(created))
	groups, err := fixture.tasks.GroupsForInstance(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, len(groups))
	assert.EqualValues(t, 2, groups[0].RequiredCompletions)
}

func TestEngine_EndStateCompletesInstance(t *testing.T) {
	ctx := context.Background()
	def := reviewDefinition()
	def.Transitions[1].Action = &model.ActionConfig{Kind: model.ActionCreateTaskGroup}
	fixture := newFixture(t, def)

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 750})
	assert.NoError(t, err)
	_, err = fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
	assert.NoError(t, err)
	_, err = fixture.engine.FireEvent(ctx, started.ID, "APPROVE", "U1004", "", nil)
	assert.NoError(t, err)
	finished, err := fixture.engine.FireEvent(ctx, started.ID, "FINISH", "U1003", "", nil)
	assert.NoError(t, err)
	assert.False(t, finished.Active)
	assert.EqualValues(t, "DONE", finished.State)

	// open tasks were force completed
	tasks, err := fixture.tasks.TasksForInstance(ctx, started.ID)
	assert.NoError(t, err)
	for _, candidate := range tasks {
		assert.NotEqualValues(t, task.StatusPending, candidate.Status)
	}
}

func TestEngine_EvictAndReconstruct(t *testing.T) {
	ctx := context.Background()
	fixture := newFixture(t, reviewDefinition())

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 100})
	assert.NoError(t, err)
	_, err = fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
	assert.NoError(t, err)
	_, err = fixture.engine.FireEvent(ctx, started.ID, "FINISH", "U1003", "done", nil)
	assert.NoError(t, err)

	// a second, still running instance survives eviction
	running, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 100})
	assert.NoError(t, err)

	evicted := fixture.engine.Evict(ctx)
	assert.EqualValues(t, 1, evicted)

	// reconstructed from history
	status, err := fixture.engine.Status(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, "DONE", status.State)
	assert.False(t, status.Active)
	assert.EqualValues(t, "U1000", status.InitiatorID)

	// the running instance is still live
	status, err = fixture.engine.Status(ctx, running.ID)
	assert.NoError(t, err)
	assert.True(t, status.Active)

	// unknown instances stay unknown
	_, err = fixture.engine.Status(ctx, "no-such-instance")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
}

func TestEngine_AcceptedEvents(t *testing.T) {
	ctx := context.Background()
	fixture := newFixture(t, reviewDefinition())

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", nil)
	assert.NoError(t, err)
	events, err := fixture.engine.AcceptedEvents(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"SUBMIT"}, events)
}

func TestTableOrdering(t *testing.T) {
	def := model.NewDefinition("t", "1").
		WithState(&model.State{Name: "A", Kind: model.StateInitial, Order: 1}).
		WithState(&model.State{Name: "B", Kind: model.StateNormal, Order: 2}).
		WithState(&model.State{Name: "C", Kind: model.StateEnd, Order: 3}).
		WithTransition(&model.Transition{FromState: "A", ToState: "C", Event: "GO", Order: 2}).
		WithTransition(&model.Transition{FromState: "A", ToState: "B", Event: "GO", Order: 1}).
		WithTransition(&model.Transition{ToState: "B", Event: "BOOT"})

	table := NewTable(def)
	candidates := table.Lookup("A", "GO")
	assert.EqualValues(t, 2, len(candidates))
	assert.EqualValues(t, "B", candidates[0].ToState)
	assert.EqualValues(t, "C", candidates[1].ToState)
	assert.EqualValues(t, 1, len(table.Bootstrap()))
	assert.Empty(t, table.Lookup("B", "GO"))
}

func TestEngine_StartCreatesInitialTasks(t *testing.T) {
	ctx := context.Background()
	def := reviewDefinition().WithAssignment(&model.AssignmentRule{
		State:    "S0",
		Type:     model.AssignmentRole,
		Config:   map[string]interface{}{"roles": []interface{}{"FINANCE_APPROVER"}},
		Strategy: model.AnyOne,
	})
	fixture := newFixture(t, def)

	started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 750})
	assert.NoError(t, err)

	// the initial state's assignees were resolved and tasked right away
	created, err := fixture.tasks.TasksForInstance(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, len(created))
	for _, candidate := range created {
		assert.EqualValues(t, "S0", candidate.State)
	}
	groups, err := fixture.tasks.GroupsForInstance(ctx, started.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, len(groups))
	assert.EqualValues(t, 1, groups[0].RequiredCompletions)
}

func TestEngine_ReworkKeepsPriorApproval(t *testing.T) {
	ctx := context.Background()
	approve := func(t *testing.T, fixture *testFixture, instanceID string) {
		t.Helper()
		pending, err := fixture.tasks.TasksForInstance(ctx, instanceID)
		assert.NoError(t, err)
		for _, candidate := range pending {
			if candidate.Status == task.StatusPending {
				_, err = fixture.tasks.Complete(ctx, candidate.ID, candidate.AssigneeID, nil)
				assert.NoError(t, err)
			}
		}
	}
	run := func(t *testing.T, skipAllowed bool) int {
		def := reviewDefinition()
		def.Transitions[1].Action = &model.ActionConfig{Kind: model.ActionCreateTaskGroup}
		fixture := newFixture(t, def)

		started, err := fixture.engine.Start(ctx, "review-flow", "U1000", map[string]interface{}{"amount": 750})
		assert.NoError(t, err)
		_, err = fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
		assert.NoError(t, err)
		approve(t, fixture, started.ID)
		_, err = fixture.engine.FireEvent(ctx, started.ID, "APPROVE", "U1004", "", nil)
		assert.NoError(t, err)
		_, err = fixture.engine.FireReworkEvent(ctx, started.ID, "REWORK", "U1003", "fix figures", skipAllowed)
		assert.NoError(t, err)

		// resubmission re-enters the already approved review state
		_, err = fixture.engine.FireEvent(ctx, started.ID, "SUBMIT", "U1000", "", nil)
		assert.NoError(t, err)
		created, err := fixture.tasks.TasksForInstance(ctx, started.ID)
		assert.NoError(t, err)
		return len(created)
	}

	// with skipping allowed the prior approval stands, no new tasks
	assert.EqualValues(t, 2, run(t, true))
	// without it the review is repeated with a fresh task group
	assert.EqualValues(t, 4, run(t, false))
}
