package model

// ActionKind identifies a transition side effect.  The set is closed; the
// engine refuses to invent behaviour for kinds it does not know.
type ActionKind string

const (
	// ActionCreateTaskGroup creates a task group with one task per resolved assignee.
	ActionCreateTaskGroup ActionKind = "CREATE_TASK_GROUP"
	// ActionCreateTask creates a single task for the first resolved assignee.
	ActionCreateTask ActionKind = "CREATE_TASK"
	// ActionCompleteProcess finalizes the instance and force-completes open tasks.
	ActionCompleteProcess ActionKind = "COMPLETE_PROCESS"
	// ActionSendNotification emits a notification built from the action config.
	ActionSendNotification ActionKind = "SEND_NOTIFICATION"
)

// ActionConfig describes the side effect attached to a transition.
type ActionConfig struct {
	Kind   ActionKind             `json:"kind" yaml:"kind"`
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// Clone returns a deep copy.
func (a *ActionConfig) Clone() *ActionConfig {
	if a == nil {
		return nil
	}
	ret := &ActionConfig{Kind: a.Kind}
	if a.Config != nil {
		ret.Config = make(map[string]interface{}, len(a.Config))
		for k, v := range a.Config {
			ret.Config[k] = v
		}
	}
	return ret
}

// Transition represents a directed edge of a workflow definition.  An empty
// FromState denotes a bootstrap transition executed when an instance starts.
type Transition struct {
	FromState   string                 `json:"fromState,omitempty" yaml:"fromState,omitempty"`
	ToState     string                 `json:"toState" yaml:"toState"`
	Event       string                 `json:"event" yaml:"event"`
	DisplayName string                 `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Guard       string                 `json:"guard,omitempty" yaml:"guard,omitempty"`
	Action      *ActionConfig          `json:"action,omitempty" yaml:"action,omitempty"`
	Order       int                    `json:"order" yaml:"order"`
	Data        map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// IsBootstrap reports whether the transition fires on instance start.
func (t *Transition) IsBootstrap() bool {
	return t != nil && t.FromState == ""
}

// Clone returns a deep copy.
func (t *Transition) Clone() *Transition {
	if t == nil {
		return nil
	}
	ret := *t
	ret.Action = t.Action.Clone()
	if t.Data != nil {
		ret.Data = make(map[string]interface{}, len(t.Data))
		for k, v := range t.Data {
			ret.Data[k] = v
		}
	}
	return &ret
}
