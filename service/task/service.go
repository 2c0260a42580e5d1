// Package task implements the task and task group lifecycle: creation from
// assignment rules, multi-assignee completion strategies, rework, delegation
// and escalation.
package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/trackflow/trackflow/internal/clock"
	"github.com/trackflow/trackflow/internal/idgen"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/model/template"
	"github.com/trackflow/trackflow/runtime/instance"
	"github.com/trackflow/trackflow/service/dao"
	"github.com/trackflow/trackflow/service/dao/criteria"
	"github.com/trackflow/trackflow/service/dao/store"
	"github.com/trackflow/trackflow/service/directory"
	"github.com/trackflow/trackflow/service/history"
	"github.com/trackflow/trackflow/service/notification"
)

var (
	// ErrUnauthorized indicates the acting user is not the assignee of the task.
	ErrUnauthorized = errors.New("task: unauthorized")

	// ErrInvalidState indicates the task is not in a state accepting the operation.
	ErrInvalidState = errors.New("task: invalid state")

	// ErrInvalidAssignee indicates the delegation target is unknown to the directory.
	ErrInvalidAssignee = errors.New("task: invalid assignee")
)

// Service manages tasks and task groups.
type Service struct {
	tasks     *store.MemoryStore[string, Task]
	groups    *store.MemoryStore[string, Group]
	history   *history.Service
	directory directory.Directory
	notifier  notification.Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a task service.
func New(historyService *history.Service, dir directory.Directory, notifier notification.Notifier) *Service {
	ret := &Service{
		history:   historyService,
		directory: dir,
		notifier:  notifier,
		locks:     make(map[string]*sync.Mutex),
	}
	ret.tasks = store.NewMemoryStore[string, Task](func(t *Task) string {
		return t.ID
	}).WithMatcher(func(t *Task, parameters []*dao.Parameter) bool {
		return criteria.Matches(map[string]string{
			"InstanceID": t.InstanceID,
			"AssigneeID": t.AssigneeID,
			"Status":     string(t.Status),
			"GroupID":    t.GroupID,
			"State":      t.State,
			"Priority":   t.Priority,
		}, parameters)
	})
	ret.groups = store.NewMemoryStore[string, Group](func(g *Group) string {
		return g.ID
	}).WithMatcher(func(g *Group, parameters []*dao.Parameter) bool {
		return criteria.Matches(map[string]string{
			"InstanceID": g.InstanceID,
			"Status":     string(g.Status),
		}, parameters)
	})
	return ret
}

// CreateGroup creates a task group with one pending task per assignee.  The
// completion threshold is computed here, once, from the strategy.
func (s *Service) CreateGroup(ctx context.Context, instanceID, state, name string, assignees []string, strategy model.CompletionStrategy, tmpl *model.TaskTemplate, data map[string]interface{}) (*Group, []*Task, error) {
	if len(assignees) == 0 {
		return nil, nil, fmt.Errorf("task group %v required at least one assignee", name)
	}
	now := clock.Now()
	group := &Group{
		ID:                  idgen.New(),
		InstanceID:          instanceID,
		Name:                name,
		Strategy:            string(strategy),
		Status:              StatusPending,
		TotalTasks:          len(assignees),
		RequiredCompletions: strategy.RequiredCompletions(len(assignees)),
		CreatedAt:           now,
	}
	if err := s.groups.Save(ctx, group); err != nil {
		return nil, nil, err
	}
	var tasks []*Task
	for _, assignee := range assignees {
		created, err := s.createTask(ctx, instanceID, state, name, assignee, group.ID, tmpl, data, now)
		if err != nil {
			return nil, nil, err
		}
		tasks = append(tasks, created)
	}
	return group.Clone(), tasks, nil
}

// CreateTask creates a single pending task outside any group.
func (s *Service) CreateTask(ctx context.Context, instanceID, state, name, assignee string, tmpl *model.TaskTemplate, data map[string]interface{}) (*Task, error) {
	return s.createTask(ctx, instanceID, state, name, assignee, "", tmpl, data, clock.Now())
}

func (s *Service) createTask(ctx context.Context, instanceID, state, name, assignee, groupID string, tmpl *model.TaskTemplate, data map[string]interface{}, now time.Time) (*Task, error) {
	created := &Task{
		ID:         idgen.New(),
		InstanceID: instanceID,
		Name:       name,
		AssigneeID: assignee,
		GroupID:    groupID,
		State:      state,
		Status:     StatusPending,
		CreatedAt:  now,
		DueAt:      now.Add(defaultDueIn),
		Priority:   PriorityMedium,
		Data:       data,
	}
	if tmpl != nil {
		if tmpl.Name != "" {
			created.Name = template.Expand(tmpl.Name, data)
		}
		if tmpl.Description != "" {
			created.Description = template.Expand(tmpl.Description, data)
		}
		if tmpl.Priority != "" {
			created.Priority = tmpl.Priority
		}
		if tmpl.DueIn != "" {
			dueIn, err := template.ParseDuration(tmpl.DueIn)
			if err != nil {
				return nil, fmt.Errorf("invalid due offset %q for task %v: %w", tmpl.DueIn, created.Name, err)
			}
			created.DueAt = now.Add(dueIn)
		}
	}
	if err := s.tasks.Save(ctx, created); err != nil {
		return nil, err
	}
	s.notify(ctx, &notification.Notification{
		Recipient:  assignee,
		Subject:    "Task assigned",
		Message:    fmt.Sprintf("New approval task assigned: %v", created.Name),
		InstanceID: instanceID,
		TaskID:     created.ID,
	})
	return created.Clone(), nil
}

// CreateReworkTask creates a high priority task with a short due offset and
// an incremented rework counter.
func (s *Service) CreateReworkTask(ctx context.Context, instanceID, name, assignee, state string) (*Task, error) {
	now := clock.Now()
	maxRework := 0
	existing, err := s.tasks.List(ctx, dao.NewParameter("InstanceID", instanceID))
	if err != nil {
		return nil, err
	}
	for _, candidate := range existing {
		if candidate.ReworkCount > maxRework {
			maxRework = candidate.ReworkCount
		}
	}
	created := &Task{
		ID:          idgen.New(),
		InstanceID:  instanceID,
		Name:        name,
		AssigneeID:  assignee,
		State:       state,
		Status:      StatusPending,
		CreatedAt:   now,
		DueAt:       now.Add(reworkDueIn),
		Description: reworkDescription,
		Priority:    PriorityHigh,
		ReworkCount: maxRework + 1,
	}
	if err := s.tasks.Save(ctx, created); err != nil {
		return nil, err
	}
	s.notify(ctx, &notification.Notification{
		Recipient:  assignee,
		Subject:    "Rework required",
		Message:    fmt.Sprintf("Rework task assigned: %v", created.Name),
		InstanceID: instanceID,
		TaskID:     created.ID,
	})
	return created.Clone(), nil
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, taskID string) (*Task, error) {
	stored, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("task %v: %w", taskID, dao.ErrNotFound)
	}
	return stored.Clone(), nil
}

// Group returns a task group by id.
func (s *Service) Group(ctx context.Context, groupID string) (*Group, error) {
	stored, err := s.groups.Load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("task group %v: %w", groupID, dao.ErrNotFound)
	}
	return stored.Clone(), nil
}

// Complete completes a pending task on behalf of its assignee and updates
// the owning group.  When the group threshold is reached the remaining
// pending member tasks are skipped; the group is finalized exactly once even
// under concurrent completions.  It returns whether this completion
// finalized the owning group; a standalone task counts as finalized.
func (s *Service) Complete(ctx context.Context, taskID, userID string, data map[string]interface{}) (bool, error) {
	peeked, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return false, err
	}
	if peeked == nil {
		return false, fmt.Errorf("task %v: %w", taskID, dao.ErrNotFound)
	}
	// the group id of a task never changes, so the locks can be picked
	// before entering the critical section; group before task keeps the
	// lock order consistent with sibling skips
	if peeked.GroupID != "" {
		groupLock := s.lockFor("group/" + peeked.GroupID)
		groupLock.Lock()
		defer groupLock.Unlock()
	}
	lock := s.lockFor("task/" + taskID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return false, err
	}
	if stored == nil {
		return false, fmt.Errorf("task %v: %w", taskID, dao.ErrNotFound)
	}
	if stored.AssigneeID != userID {
		return false, fmt.Errorf("task %v assigned to %v not %v: %w", taskID, stored.AssigneeID, userID, ErrUnauthorized)
	}
	if stored.Status != StatusPending {
		return false, fmt.Errorf("task %v was %v: %w", taskID, stored.Status, ErrInvalidState)
	}
	now := clock.Now()
	stored.Status = StatusCompleted
	stored.CompletedAt = &now
	stored.CompletedBy = userID
	if len(data) > 0 {
		if stored.Data == nil {
			stored.Data = make(map[string]interface{}, len(data))
		}
		for k, v := range data {
			stored.Data[k] = v
		}
	}
	if err = s.tasks.Save(ctx, stored); err != nil {
		return false, err
	}
	entry := &instance.HistoryEntry{
		InstanceID: stored.InstanceID,
		ToState:    stored.State,
		Event:      instance.EventTaskCompleted,
		UserID:     userID,
		Context:    map[string]interface{}{"taskId": taskID, "taskName": stored.Name},
	}
	if err = s.history.Record(ctx, entry); err != nil {
		return false, err
	}
	if stored.GroupID == "" {
		return true, nil
	}
	return s.updateGroup(ctx, stored.GroupID, now)
}

// updateGroup increments the completion count and finalizes the group when
// the threshold is reached.  The caller holds the group lock, making the
// check-then-act sequence atomic and ordering sibling skips against sibling
// completions; without it two concurrent completers could both observe
// count == threshold-1 and finalize twice, or revive a skipped task.
func (s *Service) updateGroup(ctx context.Context, groupID string, now time.Time) (bool, error) {
	group, err := s.groups.Load(ctx, groupID)
	if err != nil {
		return false, err
	}
	if group == nil {
		return false, fmt.Errorf("task group %v: %w", groupID, dao.ErrNotFound)
	}
	group.CompletedTasks++
	finalized := false
	if group.Status == StatusPending && group.CompletedTasks >= group.RequiredCompletions {
		group.Status = StatusCompleted
		group.CompletedAt = &now
		finalized = true
		if err = s.skipPending(ctx, groupID, now); err != nil {
			return false, err
		}
	}
	if err = s.groups.Save(ctx, group); err != nil {
		return false, err
	}
	return finalized, nil
}

// skipPending marks the remaining pending member tasks of a group SKIPPED.
func (s *Service) skipPending(ctx context.Context, groupID string, now time.Time) error {
	members, err := s.tasks.List(ctx,
		dao.NewParameter("GroupID", groupID),
		dao.NewParameter("Status", string(StatusPending)))
	if err != nil {
		return err
	}
	for _, member := range members {
		member.Status = StatusSkipped
		member.CompletedAt = &now
		if err = s.tasks.Save(ctx, member); err != nil {
			return err
		}
	}
	return nil
}

// Delegate reassigns a pending task to another user.
func (s *Service) Delegate(ctx context.Context, taskID, fromUserID, toUserID, reason string) error {
	stored, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("task %v: %w", taskID, dao.ErrNotFound)
	}
	if stored.AssigneeID != fromUserID {
		return fmt.Errorf("task %v assigned to %v not %v: %w", taskID, stored.AssigneeID, fromUserID, ErrUnauthorized)
	}
	if stored.Status != StatusPending {
		return fmt.Errorf("task %v was %v: %w", taskID, stored.Status, ErrInvalidState)
	}
	valid, err := s.directory.Validate(ctx, toUserID)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("user %v: %w", toUserID, ErrInvalidAssignee)
	}
	stored.AssigneeID = toUserID
	if err = s.tasks.Save(ctx, stored); err != nil {
		return err
	}
	entry := &instance.HistoryEntry{
		InstanceID: stored.InstanceID,
		ToState:    stored.State,
		Event:      instance.EventTaskDelegated,
		UserID:     fromUserID,
		Context: map[string]interface{}{
			"previousAssignee": fromUserID,
			"newAssignee":      toUserID,
			"reason":           reason,
		},
	}
	if err = s.history.Record(ctx, entry); err != nil {
		return err
	}
	s.notify(ctx, &notification.Notification{
		Recipient:  toUserID,
		Subject:    "Task delegated to you",
		Message:    fmt.Sprintf("Task %v delegated by %v: %v", stored.Name, fromUserID, reason),
		InstanceID: stored.InstanceID,
		TaskID:     taskID,
	})
	return nil
}

// Escalate records an escalation on a pending task on behalf of its
// assignee.  The task stays assigned.
func (s *Service) Escalate(ctx context.Context, taskID, byUserID, reason string) error {
	stored, err := s.tasks.Load(ctx, taskID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("task %v: %w", taskID, dao.ErrNotFound)
	}
	if stored.AssigneeID != byUserID {
		return fmt.Errorf("task %v assigned to %v not %v: %w", taskID, stored.AssigneeID, byUserID, ErrUnauthorized)
	}
	if stored.Status != StatusPending {
		return fmt.Errorf("task %v was %v: %w", taskID, stored.Status, ErrInvalidState)
	}
	entry := &instance.HistoryEntry{
		InstanceID: stored.InstanceID,
		ToState:    stored.State,
		Event:      instance.EventTaskEscalated,
		UserID:     byUserID,
		Context: map[string]interface{}{
			"escalatedBy": byUserID,
			"reason":      reason,
		},
	}
	return s.history.Record(ctx, entry)
}

// ForceCompleteOpen completes all pending tasks and groups of an instance.
// Used when the process reaches a terminal state.
func (s *Service) ForceCompleteOpen(ctx context.Context, instanceID string) error {
	now := clock.Now()
	pending, err := s.tasks.List(ctx,
		dao.NewParameter("InstanceID", instanceID),
		dao.NewParameter("Status", string(StatusPending)))
	if err != nil {
		return err
	}
	for _, stored := range pending {
		stored.Status = StatusCompleted
		stored.CompletedAt = &now
		stored.CompletedBy = "system"
		if err = s.tasks.Save(ctx, stored); err != nil {
			return err
		}
	}
	groups, err := s.groups.List(ctx,
		dao.NewParameter("InstanceID", instanceID),
		dao.NewParameter("Status", string(StatusPending)))
	if err != nil {
		return err
	}
	for _, group := range groups {
		group.Status = StatusCompleted
		group.CompletedAt = &now
		if err = s.groups.Save(ctx, group); err != nil {
			return err
		}
	}
	return nil
}

// TasksForUser returns a user's tasks.  With an empty status filter it
// returns everything except skipped tasks.
func (s *Service) TasksForUser(ctx context.Context, userID string, status Status) ([]*Task, error) {
	parameters := []*dao.Parameter{dao.NewParameter("AssigneeID", userID)}
	if status != "" {
		parameters = append(parameters, dao.NewParameter("Status", string(status)))
	} else {
		parameters = append(parameters, dao.NewParameter("StatusNot", string(StatusSkipped)))
	}
	stored, err := s.tasks.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	return cloneAndSort(stored), nil
}

// TasksForInstance returns all tasks of an instance.
func (s *Service) TasksForInstance(ctx context.Context, instanceID string) ([]*Task, error) {
	stored, err := s.tasks.List(ctx, dao.NewParameter("InstanceID", instanceID))
	if err != nil {
		return nil, err
	}
	return cloneAndSort(stored), nil
}

// GroupsForInstance returns all task groups of an instance.
func (s *Service) GroupsForInstance(ctx context.Context, instanceID string) ([]*Group, error) {
	stored, err := s.groups.List(ctx, dao.NewParameter("InstanceID", instanceID))
	if err != nil {
		return nil, err
	}
	ret := make([]*Group, len(stored))
	for i, group := range stored {
		ret[i] = group.Clone()
	}
	return ret, nil
}

// lockFor returns the named critical section lock, creating it on first use.
func (s *Service) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[name] = lock
	}
	return lock
}

func (s *Service) notify(ctx context.Context, n *notification.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Printf("failed to notify %v: %v", n.Recipient, err)
	}
}
