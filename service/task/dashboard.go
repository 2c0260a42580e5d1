package task

import (
	"context"
	"sort"
	"time"

	"github.com/trackflow/trackflow/internal/clock"
	"github.com/trackflow/trackflow/service/dao"
)

// Summary aggregates a user's task counts.
type Summary struct {
	TotalPending        int `json:"totalPending"`
	TotalCompleted      int `json:"totalCompleted"`
	HighPriorityPending int `json:"highPriorityPending"`
	OverdueTasks        int `json:"overdueTasks"`
	ReworkTasks         int `json:"reworkTasks"`
}

// Dashboard is the per-user work overview.  InstanceStates maps each
// instance with pending work to the workflow state its pending tasks were
// created in.
type Dashboard struct {
	PendingTasks   []*Task           `json:"pendingTasks"`
	CompletedTasks []*Task           `json:"completedTasks"`
	TaskGroups     []*Group          `json:"taskGroups"`
	InstanceStates map[string]string `json:"instanceStates,omitempty"`
	Summary        *Summary          `json:"summary"`
}

// Filter narrows task queries.
type Filter struct {
	AssigneeID  string
	Status      Status
	Priority    string
	State       string
	DueDateFrom *time.Time
	DueDateTo   *time.Time
}

// DashboardFor builds the dashboard of a user: pending and completed tasks,
// the groups their pending tasks belong to, and the counters.
func (s *Service) DashboardFor(ctx context.Context, userID string) (*Dashboard, error) {
	pending, err := s.TasksForUser(ctx, userID, StatusPending)
	if err != nil {
		return nil, err
	}
	completed, err := s.TasksForUser(ctx, userID, StatusCompleted)
	if err != nil {
		return nil, err
	}
	var groups []*Group
	seen := map[string]bool{}
	for _, candidate := range pending {
		if candidate.GroupID == "" || seen[candidate.GroupID] {
			continue
		}
		seen[candidate.GroupID] = true
		group, err := s.Group(ctx, candidate.GroupID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	now := clock.Now()
	summary := &Summary{
		TotalPending:   len(pending),
		TotalCompleted: len(completed),
	}
	states := map[string]string{}
	for _, candidate := range pending {
		if candidate.Priority == PriorityHigh {
			summary.HighPriorityPending++
		}
		if candidate.IsOverdue(now) {
			summary.OverdueTasks++
		}
		if candidate.ReworkCount > 0 {
			summary.ReworkTasks++
		}
		states[candidate.InstanceID] = candidate.State
	}
	return &Dashboard{
		PendingTasks:   pending,
		CompletedTasks: completed,
		TaskGroups:     groups,
		InstanceStates: states,
		Summary:        summary,
	}, nil
}

// TasksByFilter returns tasks matching the filter.
func (s *Service) TasksByFilter(ctx context.Context, filter *Filter) ([]*Task, error) {
	var parameters []*dao.Parameter
	if filter.AssigneeID != "" {
		parameters = append(parameters, dao.NewParameter("AssigneeID", filter.AssigneeID))
	}
	if filter.Status != "" {
		parameters = append(parameters, dao.NewParameter("Status", string(filter.Status)))
	}
	if filter.Priority != "" {
		parameters = append(parameters, dao.NewParameter("Priority", filter.Priority))
	}
	if filter.State != "" {
		parameters = append(parameters, dao.NewParameter("State", filter.State))
	}
	stored, err := s.tasks.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	var ret []*Task
	for _, candidate := range stored {
		if filter.DueDateFrom != nil && candidate.DueAt.Before(*filter.DueDateFrom) {
			continue
		}
		if filter.DueDateTo != nil && candidate.DueAt.After(*filter.DueDateTo) {
			continue
		}
		ret = append(ret, candidate.Clone())
	}
	sortTasks(ret)
	return ret, nil
}

func cloneAndSort(stored []*Task) []*Task {
	ret := make([]*Task, len(stored))
	for i, candidate := range stored {
		ret[i] = candidate.Clone()
	}
	sortTasks(ret)
	return ret
}

func sortTasks(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
