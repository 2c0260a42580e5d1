package model

import (
	"github.com/trackflow/trackflow/model/condition"
)

// RuleType classifies a named business rule.
type RuleType string

const (
	RuleGuard      RuleType = "GUARD"
	RuleAction     RuleType = "ACTION"
	RuleValidation RuleType = "VALIDATION"
)

// Rule is a named condition attached to a workflow definition.  The
// expression uses the condition package grammar and is evaluated against
// instance data, e.g. FINANCE_APPROVAL_REQUIRED deciding whether the finance
// step applies to a given request.
type Rule struct {
	Name       string                 `json:"name" yaml:"name"`
	Type       RuleType               `json:"type" yaml:"type"`
	Expression string                 `json:"expression,omitempty" yaml:"expression,omitempty"`
	Config     map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
	Priority   int                    `json:"priority" yaml:"priority"`
	Active     bool                   `json:"active" yaml:"active"`
}

// Evaluate evaluates the rule against instance data.  When the config names
// a field and the data does not carry it, the configured default applies
// instead of the expression.  Inactive rules evaluate to false.
func (r *Rule) Evaluate(data map[string]interface{}) bool {
	if r == nil || !r.Active {
		return false
	}
	if field, ok := r.Config["field"].(string); ok {
		if _, present := data[field]; !present {
			fallback, _ := r.Config["default"].(bool)
			return fallback
		}
	}
	return condition.Evaluate(r.Expression, data, nil)
}

// Clone returns a deep copy.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	ret := *r
	if r.Config != nil {
		ret.Config = make(map[string]interface{}, len(r.Config))
		for k, v := range r.Config {
			ret.Config[k] = v
		}
	}
	return &ret
}
