package model

import (
	"fmt"
	"time"
)

// Definition represents one version of a workflow definition.  Versions of
// the same workflow name are independent records; at most one of them is
// active at any time.
type Definition struct {
	ID          string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string            `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Active      bool              `json:"active" yaml:"active"`
	CreatedBy   string            `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	CreatedAt   time.Time         `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	ActivatedAt *time.Time        `json:"activatedAt,omitempty" yaml:"activatedAt,omitempty"`
	ActivatedBy string            `json:"activatedBy,omitempty" yaml:"activatedBy,omitempty"`
	States      []*State          `json:"states,omitempty" yaml:"states,omitempty"`
	Transitions []*Transition     `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Assignments []*AssignmentRule `json:"assignments,omitempty" yaml:"assignments,omitempty"`
	Rules       []*Rule           `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// NewDefinition creates a definition with the supplied name and version.
func NewDefinition(name, version string) *Definition {
	return &Definition{Name: name, Version: version}
}

// Key returns the store key identifying this version.
func (d *Definition) Key() string {
	return Key(d.Name, d.Version)
}

// Key builds the composite (name, version) store key.
func Key(name, version string) string {
	return name + "/" + version
}

// WithDescription sets description and returns the definition.
func (d *Definition) WithDescription(text string) *Definition {
	d.Description = text
	return d
}

// WithCreatedBy sets the author and returns the definition.
func (d *Definition) WithCreatedBy(userID string) *Definition {
	d.CreatedBy = userID
	return d
}

// WithState appends a state and returns the definition.
func (d *Definition) WithState(state *State) *Definition {
	d.States = append(d.States, state)
	return d
}

// WithTransition appends a transition and returns the definition.
func (d *Definition) WithTransition(transition *Transition) *Definition {
	d.Transitions = append(d.Transitions, transition)
	return d
}

// WithAssignment appends an assignment rule and returns the definition.
func (d *Definition) WithAssignment(rule *AssignmentRule) *Definition {
	d.Assignments = append(d.Assignments, rule)
	return d
}

// WithRule appends a named rule and returns the definition.
func (d *Definition) WithRule(rule *Rule) *Definition {
	d.Rules = append(d.Rules, rule)
	return d
}

// StateByName returns the named state or nil.
func (d *Definition) StateByName(name string) *State {
	for _, state := range d.States {
		if state.Name == name {
			return state
		}
	}
	return nil
}

// InitialState returns the INITIAL state or nil when the definition is
// malformed.
func (d *Definition) InitialState() *State {
	for _, state := range d.States {
		if state.IsInitial() {
			return state
		}
	}
	return nil
}

// IsEndState reports whether the named state is terminal.
func (d *Definition) IsEndState(name string) bool {
	return d.StateByName(name).IsEnd()
}

// AssignmentForState returns the assignment rule bound to the named state,
// or nil when the state has none.
func (d *Definition) AssignmentForState(name string) *AssignmentRule {
	for _, rule := range d.Assignments {
		if rule.State == name {
			return rule
		}
	}
	return nil
}

// RuleByName returns the named business rule, or nil.
func (d *Definition) RuleByName(name string) *Rule {
	for _, rule := range d.Rules {
		if rule.Name == name {
			return rule
		}
	}
	return nil
}

// Validate checks structural integrity and returns all problems found.
func (d *Definition) Validate() []error {
	var errors []error
	if d.Name == "" {
		errors = append(errors, fmt.Errorf("definition name was empty"))
	}
	if d.Version == "" {
		errors = append(errors, fmt.Errorf("definition version was empty"))
	}
	var initial, end int
	seen := map[string]bool{}
	for _, state := range d.States {
		if state.Name == "" {
			errors = append(errors, fmt.Errorf("state name was empty"))
			continue
		}
		if seen[state.Name] {
			errors = append(errors, fmt.Errorf("duplicate state %q", state.Name))
		}
		seen[state.Name] = true
		switch state.Kind {
		case StateInitial:
			initial++
		case StateEnd:
			end++
		case StateNormal:
		default:
			errors = append(errors, fmt.Errorf("state %q had unknown kind %q", state.Name, state.Kind))
		}
	}
	if initial != 1 {
		errors = append(errors, fmt.Errorf("expected exactly one INITIAL state, had %d", initial))
	}
	if end == 0 {
		errors = append(errors, fmt.Errorf("expected at least one END state"))
	}
	for _, transition := range d.Transitions {
		if transition.Event == "" {
			errors = append(errors, fmt.Errorf("transition to %q had no event", transition.ToState))
		}
		if transition.FromState != "" && !seen[transition.FromState] {
			errors = append(errors, fmt.Errorf("transition on %q referenced unknown state %q", transition.Event, transition.FromState))
		}
		if !seen[transition.ToState] {
			errors = append(errors, fmt.Errorf("transition on %q referenced unknown state %q", transition.Event, transition.ToState))
		}
	}
	for _, rule := range d.Assignments {
		if !seen[rule.State] {
			errors = append(errors, fmt.Errorf("assignment referenced unknown state %q", rule.State))
		}
		switch rule.Strategy {
		case AnyOne, AllRequired, Majority, "":
		default:
			errors = append(errors, fmt.Errorf("assignment for %q had unknown strategy %q", rule.State, rule.Strategy))
		}
	}
	return errors
}

// Clone returns a deep copy safe to hand to callers.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	ret := *d
	if d.ActivatedAt != nil {
		at := *d.ActivatedAt
		ret.ActivatedAt = &at
	}
	ret.States = make([]*State, len(d.States))
	for i, state := range d.States {
		cloned := *state
		ret.States[i] = &cloned
	}
	ret.Transitions = make([]*Transition, len(d.Transitions))
	for i, transition := range d.Transitions {
		ret.Transitions[i] = transition.Clone()
	}
	ret.Assignments = make([]*AssignmentRule, len(d.Assignments))
	for i, rule := range d.Assignments {
		ret.Assignments[i] = rule.Clone()
	}
	ret.Rules = make([]*Rule, len(d.Rules))
	for i, rule := range d.Rules {
		ret.Rules[i] = rule.Clone()
	}
	return &ret
}

// CloneMeta copies states, transitions, assignments and rules into a fresh
// inactive definition carrying the supplied version.  Runtime metadata such
// as activation timestamps is not carried over.
func (d *Definition) CloneMeta(version, createdBy string) *Definition {
	ret := d.Clone()
	ret.ID = ""
	ret.Version = version
	ret.Active = false
	ret.CreatedBy = createdBy
	ret.CreatedAt = time.Time{}
	ret.ActivatedAt = nil
	ret.ActivatedBy = ""
	ret.Description = fmt.Sprintf("Cloned from version %s", d.Version)
	return ret
}
