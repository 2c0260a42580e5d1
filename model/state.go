package model

// StateKind classifies a state within a workflow definition.
type StateKind string

const (
	// StateInitial marks the state a new process instance starts in.
	StateInitial StateKind = "INITIAL"
	// StateNormal marks an intermediate state.
	StateNormal StateKind = "NORMAL"
	// StateEnd marks a terminal state; entering it completes the instance.
	StateEnd StateKind = "END"
)

// State represents a single state of a workflow definition.
type State struct {
	Name        string    `json:"name" yaml:"name"`
	Kind        StateKind `json:"kind" yaml:"kind"`
	DisplayName string    `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Order       int       `json:"order" yaml:"order"`
}

// IsEnd returns true for terminal states.
func (s *State) IsEnd() bool {
	return s != nil && s.Kind == StateEnd
}

// IsInitial returns true for the entry state.
func (s *State) IsInitial() bool {
	return s != nil && s.Kind == StateInitial
}
