package instance

import "time"

// Pseudo events recorded in history for task level operations that do not
// move the state machine.
const (
	EventTaskCompleted = "TASK_COMPLETED"
	EventTaskDelegated = "TASK_DELEGATED"
	EventTaskEscalated = "TASK_ESCALATED"
)

// HistoryEntry is one append-only audit record of an instance.
type HistoryEntry struct {
	ID         string                 `json:"id"`
	InstanceID string                 `json:"instanceId"`
	FromState  string                 `json:"fromState,omitempty"`
	ToState    string                 `json:"toState"`
	Event      string                 `json:"event"`
	UserID     string                 `json:"userId,omitempty"`
	At         time.Time              `json:"at"`
	Comment    string                 `json:"comment,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Clone returns a deep copy.
func (h *HistoryEntry) Clone() *HistoryEntry {
	if h == nil {
		return nil
	}
	ret := *h
	if h.Context != nil {
		ret.Context = make(map[string]interface{}, len(h.Context))
		for k, v := range h.Context {
			ret.Context[k] = v
		}
	}
	return &ret
}
