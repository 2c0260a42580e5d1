package model

// AssignmentType selects how assignees for a state are resolved.
type AssignmentType string

const (
	// AssignmentRole resolves assignees from the identity directory by role name.
	AssignmentRole AssignmentType = "ROLE"
	// AssignmentUser takes the configured user ids verbatim.
	AssignmentUser AssignmentType = "USER"
	// AssignmentDynamic is an extension point; the built-in resolver returns
	// no assignees for it.
	AssignmentDynamic AssignmentType = "DYNAMIC"
)

// CompletionStrategy determines how many member tasks of a group have to be
// completed before the group is done.
type CompletionStrategy string

const (
	AnyOne      CompletionStrategy = "ANY_ONE"
	AllRequired CompletionStrategy = "ALL_REQUIRED"
	Majority    CompletionStrategy = "MAJORITY"
)

// RequiredCompletions returns the completion threshold for a group of the
// given size.  The result is computed once at group creation and never
// recomputed afterwards.
func (s CompletionStrategy) RequiredCompletions(total int) int {
	switch s {
	case AllRequired:
		return total
	case Majority:
		return total/2 + 1
	default:
		return 1
	}
}

// TaskTemplate carries presentation defaults for tasks created on entering a
// state.  DueIn uses the duration micro-syntax of the template package, e.g.
// "3d" or "48h".
type TaskTemplate struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    string `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueIn       string `json:"dueIn,omitempty" yaml:"dueIn,omitempty"`
}

// Clone returns a shallow copy (the template has no reference fields).
func (t *TaskTemplate) Clone() *TaskTemplate {
	if t == nil {
		return nil
	}
	ret := *t
	return &ret
}

// AssignmentRule binds a state to its task assignment policy.
type AssignmentRule struct {
	State    string                 `json:"state" yaml:"state"`
	Type     AssignmentType         `json:"type" yaml:"type"`
	Config   map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
	Strategy CompletionStrategy     `json:"strategy" yaml:"strategy"`
	Template *TaskTemplate          `json:"template,omitempty" yaml:"template,omitempty"`
}

// Roles returns the configured role names for ROLE typed rules.
func (r *AssignmentRule) Roles() []string {
	return r.configStrings("roles")
}

// Users returns the configured user ids for USER typed rules.
func (r *AssignmentRule) Users() []string {
	return r.configStrings("users")
}

func (r *AssignmentRule) configStrings(key string) []string {
	if r == nil || r.Config == nil {
		return nil
	}
	switch actual := r.Config[key].(type) {
	case []string:
		return actual
	case []interface{}:
		var ret []string
		for _, item := range actual {
			if text, ok := item.(string); ok {
				ret = append(ret, text)
			}
		}
		return ret
	case string:
		return []string{actual}
	}
	return nil
}

// Clone returns a deep copy.
func (r *AssignmentRule) Clone() *AssignmentRule {
	if r == nil {
		return nil
	}
	ret := *r
	ret.Template = r.Template.Clone()
	if r.Config != nil {
		ret.Config = make(map[string]interface{}, len(r.Config))
		for k, v := range r.Config {
			ret.Config[k] = v
		}
	}
	return &ret
}
