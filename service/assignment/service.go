// Package assignment resolves the assignment rule of a state to concrete
// user ids.
package assignment

import (
	"context"
	"log"

	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/directory"
)

// Resolver resolves assignment rules against an identity directory.
type Resolver struct {
	directory directory.Directory
}

// New creates a resolver.
func New(dir directory.Directory) *Resolver {
	return &Resolver{directory: dir}
}

// Resolve returns the user ids the rule assigns tasks to.  A nil rule
// resolves to no assignees; callers skip task creation in that case.
// DYNAMIC rules are an extension point and resolve to no assignees.
func (r *Resolver) Resolve(ctx context.Context, rule *model.AssignmentRule) ([]string, error) {
	if rule == nil {
		return nil, nil
	}
	switch rule.Type {
	case model.AssignmentRole:
		return r.resolveRoles(ctx, rule.Roles())
	case model.AssignmentUser:
		return rule.Users(), nil
	case model.AssignmentDynamic:
		log.Printf("dynamic assignment for state %v not resolved, no assignees", rule.State)
		return nil, nil
	}
	log.Printf("unknown assignment type %v for state %v, no assignees", rule.Type, rule.State)
	return nil, nil
}

// resolveRoles unions directory lookups preserving first-seen order.
func (r *Resolver) resolveRoles(ctx context.Context, roles []string) ([]string, error) {
	var ret []string
	seen := map[string]bool{}
	for _, role := range roles {
		ids, err := r.directory.UserIDsByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			ret = append(ret, id)
		}
	}
	return ret, nil
}
