package task

import (
	"time"
)

// Status of a task or task group.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusSkipped   Status = "SKIPPED"
)

// Task priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Default due offsets.
const (
	defaultDueIn = 3 * 24 * time.Hour
	reworkDueIn  = 2 * 24 * time.Hour
)

const reworkDescription = "Rework required - please address feedback and resubmit"

// Task is a unit of work assigned to a single user.
type Task struct {
	ID          string                 `json:"id"`
	InstanceID  string                 `json:"instanceId"`
	Name        string                 `json:"name"`
	AssigneeID  string                 `json:"assigneeId"`
	Role        string                 `json:"role,omitempty"`
	GroupID     string                 `json:"groupId,omitempty"`
	State       string                 `json:"state"`
	Status      Status                 `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	DueAt       time.Time              `json:"dueAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
	Description string                 `json:"description,omitempty"`
	Priority    string                 `json:"priority"`
	ReworkCount int                    `json:"reworkCount"`
	CompletedBy string                 `json:"completedBy,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// IsOverdue reports whether a pending task is past its due date.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == StatusPending && !t.DueAt.IsZero() && t.DueAt.Before(now)
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	ret := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		ret.CompletedAt = &at
	}
	if t.Data != nil {
		ret.Data = make(map[string]interface{}, len(t.Data))
		for k, v := range t.Data {
			ret.Data[k] = v
		}
	}
	return &ret
}

// Group ties the member tasks of a multi-assignee state together.
// RequiredCompletions is computed once from the completion strategy at
// creation and never recomputed afterwards.
type Group struct {
	ID                  string     `json:"id"`
	InstanceID          string     `json:"instanceId"`
	Name                string     `json:"name"`
	Strategy            string     `json:"strategy"`
	Status              Status     `json:"status"`
	TotalTasks          int        `json:"totalTasks"`
	CompletedTasks      int        `json:"completedTasks"`
	RequiredCompletions int        `json:"requiredCompletions"`
	CreatedAt           time.Time  `json:"createdAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a deep copy.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	ret := *g
	if g.CompletedAt != nil {
		at := *g.CompletedAt
		ret.CompletedAt = &at
	}
	return &ret
}
