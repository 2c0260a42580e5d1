package instance

import (
	"sync"
	"time"
)

// Data keys maintained by the engine on rework events.
const (
	KeyRework            = "isRework"
	KeyReworkSkip        = "reworkSkipAllowed"
	KeyReworkReason      = "reworkReason"
	KeyInitiator         = "initiatorUserId"
	KeyProcessInstanceID = "processInstanceId"
)

// Instance represents a live workflow process instance.
type Instance struct {
	mu              sync.RWMutex
	ID              string                 `json:"id"`
	WorkflowName    string                 `json:"workflowName"`
	WorkflowVersion string                 `json:"workflowVersion"`
	State           string                 `json:"state"`
	Active          bool                   `json:"active"`
	InitiatorID     string                 `json:"initiatorId"`
	Data            map[string]interface{} `json:"data,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	FinishedAt      *time.Time             `json:"finishedAt,omitempty"`
}

// New creates a live instance in the supplied state.
func New(id, workflowName, workflowVersion, state, initiatorID string, data map[string]interface{}, at time.Time) *Instance {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &Instance{
		ID:              id,
		WorkflowName:    workflowName,
		WorkflowVersion: workflowVersion,
		State:           state,
		Active:          true,
		InitiatorID:     initiatorID,
		Data:            data,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}

// GetState returns the current state under a read lock.
func (i *Instance) GetState() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.State
}

// SetState moves the instance to a new state, stamping UpdatedAt.
func (i *Instance) SetState(state string, at time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.State = state
	i.UpdatedAt = at
}

// Finish deactivates the instance, stamping FinishedAt.
func (i *Instance) Finish(at time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Active = false
	i.UpdatedAt = at
	i.FinishedAt = &at
}

// IsActive returns the activity flag under a read lock.
func (i *Instance) IsActive() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.Active
}

// MergeData merges the supplied values into instance data.
func (i *Instance) MergeData(values map[string]interface{}) {
	if len(values) == 0 {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Data == nil {
		i.Data = make(map[string]interface{}, len(values))
	}
	for k, v := range values {
		i.Data[k] = v
	}
}

// DataValue returns a single data value.
func (i *Instance) DataValue(key string) (interface{}, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	value, ok := i.Data[key]
	return value, ok
}

// Rework reports whether the instance is flagged as being in rework.
func (i *Instance) Rework() bool {
	value, _ := i.DataValue(KeyRework)
	flagged, _ := value.(bool)
	return flagged
}

// ReworkSkipAllowed reports whether skipping rework steps is allowed.
func (i *Instance) ReworkSkipAllowed() bool {
	value, _ := i.DataValue(KeyReworkSkip)
	allowed, _ := value.(bool)
	return allowed
}

// DataSnapshot returns a copy of the instance data.
func (i *Instance) DataSnapshot() map[string]interface{} {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ret := make(map[string]interface{}, len(i.Data))
	for k, v := range i.Data {
		ret[k] = v
	}
	return ret
}

// Clone returns a deep copy of this instance.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	ret := &Instance{
		ID:              i.ID,
		WorkflowName:    i.WorkflowName,
		WorkflowVersion: i.WorkflowVersion,
		State:           i.State,
		Active:          i.Active,
		InitiatorID:     i.InitiatorID,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
	if i.FinishedAt != nil {
		at := *i.FinishedAt
		ret.FinishedAt = &at
	}
	ret.Data = make(map[string]interface{}, len(i.Data))
	for k, v := range i.Data {
		ret.Data[k] = v
	}
	return ret
}

// CopyFrom overwrites this instance with the content of from.  The mutex is
// left untouched.
func (i *Instance) CopyFrom(from *Instance) {
	if from == nil {
		return
	}
	cloned := from.Clone()
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ID = cloned.ID
	i.WorkflowName = cloned.WorkflowName
	i.WorkflowVersion = cloned.WorkflowVersion
	i.State = cloned.State
	i.Active = cloned.Active
	i.InitiatorID = cloned.InitiatorID
	i.Data = cloned.Data
	i.CreatedAt = cloned.CreatedAt
	i.UpdatedAt = cloned.UpdatedAt
	i.FinishedAt = cloned.FinishedAt
}
