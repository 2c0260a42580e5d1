// Package bootstrap seeds the baseline workflow definition.  Seeding is
// idempotent: once any version of the baseline workflow exists the call is a
// no-op, so restarts never duplicate or reactivate versions.
package bootstrap

import (
	"context"

	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/definition"
)

// Baseline identity.
const (
	DefaultWorkflowName = "Tracker-core-workflow"
	DefaultVersion      = "1.0.0"
	systemUser          = "system"
)

// Baseline states.
const (
	StateBusinessReview  = "PENDING_PLANNING_BUSINESS_REVIEW"
	StateFinanceApproval = "PENDING_PLANNING_FINANCE_APPROVAL"
	StateOwnerReview     = "PENDING_PLANNING_OWNER_REVIEW"
	StateManagerReview   = "PENDING_PLANNING_MANAGER_REVIEW"
	StateCompleted       = "COMPLETED"
)

// Baseline events.
const (
	EventBusinessSubmit = "PLANNING_BUSINESS_SUBMIT"
	EventFinanceApprove = "PLANNING_FINANCE_APPROVE"
	EventOwnerSubmit    = "PLANNING_OWNER_SUBMIT"
	EventManagerSubmit  = "PLANNING_MANAGER_SUBMIT"
)

// Named business rules.
const (
	RuleFinanceApprovalRequired = "FINANCE_APPROVAL_REQUIRED"
	RuleCeoApprovalRequired     = "CEO_APPROVAL_REQUIRED"
)

// EnsureDefault seeds and activates the baseline workflow definition unless
// any version of it already exists.
func EnsureDefault(ctx context.Context, store *definition.Service) error {
	existing, err := store.Versions(ctx, DefaultWorkflowName)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if err = store.Create(ctx, Default()); err != nil {
		return err
	}
	return store.Activate(ctx, DefaultWorkflowName, DefaultVersion, "system")
}

// Default builds the baseline definition.
func Default() *model.Definition {
	return model.NewDefinition(DefaultWorkflowName, DefaultVersion).
		WithDescription("Core planning approval workflow").
		WithCreatedBy(systemUser).
		WithState(&model.State{Name: StateBusinessReview, Kind: model.StateInitial, DisplayName: "Business Review", Order: 1}).
		WithState(&model.State{Name: StateFinanceApproval, Kind: model.StateNormal, DisplayName: "Finance Approval", Order: 2}).
		WithState(&model.State{Name: StateOwnerReview, Kind: model.StateNormal, DisplayName: "Owner Review", Order: 3}).
		WithState(&model.State{Name: StateManagerReview, Kind: model.StateNormal, DisplayName: "Manager Review", Order: 4}).
		WithState(&model.State{Name: StateCompleted, Kind: model.StateEnd, DisplayName: "Completed", Order: 5}).
		WithTransition(&model.Transition{
			FromState: StateBusinessReview,
			ToState:   StateFinanceApproval,
			Event:     EventBusinessSubmit,
			Action:    &model.ActionConfig{Kind: model.ActionCreateTaskGroup},
			Order:     1,
		}).
		WithTransition(&model.Transition{
			FromState: StateFinanceApproval,
			ToState:   StateOwnerReview,
			Event:     EventFinanceApprove,
			Action:    &model.ActionConfig{Kind: model.ActionCreateTaskGroup},
			Order:     2,
		}).
		WithTransition(&model.Transition{
			FromState: StateOwnerReview,
			ToState:   StateManagerReview,
			Event:     EventOwnerSubmit,
			Action:    &model.ActionConfig{Kind: model.ActionCreateTaskGroup},
			Order:     3,
		}).
		WithTransition(&model.Transition{
			FromState: StateManagerReview,
			ToState:   StateCompleted,
			Event:     EventManagerSubmit,
			Action:    &model.ActionConfig{Kind: model.ActionCompleteProcess},
			Order:     4,
		}).
		WithAssignment(&model.AssignmentRule{
			State:    StateBusinessReview,
			Type:     model.AssignmentRole,
			Config:   map[string]interface{}{"roles": []interface{}{"BUSINESS_REVIEWER"}},
			Strategy: model.AnyOne,
			Template: &model.TaskTemplate{
				Name:        "Business Review",
				Description: "Review the business case and submit for finance approval",
				Priority:    "MEDIUM",
				DueIn:       "3d",
			},
		}).
		WithAssignment(&model.AssignmentRule{
			State:    StateFinanceApproval,
			Type:     model.AssignmentRole,
			Config:   map[string]interface{}{"roles": []interface{}{"FINANCE_APPROVER"}},
			Strategy: model.AnyOne,
			Template: &model.TaskTemplate{
				Name:        "Finance Approval",
				Description: "Approve the financial impact of the request",
				Priority:    "MEDIUM",
				DueIn:       "3d",
			},
		}).
		WithAssignment(&model.AssignmentRule{
			State:    StateOwnerReview,
			Type:     model.AssignmentRole,
			Config:   map[string]interface{}{"roles": []interface{}{"OWNER_REVIEWER"}},
			Strategy: model.AnyOne,
			Template: &model.TaskTemplate{
				Name:        "Owner Review",
				Description: "Review the request as owning stakeholder",
				Priority:    "MEDIUM",
				DueIn:       "3d",
			},
		}).
		WithAssignment(&model.AssignmentRule{
			State:    StateManagerReview,
			Type:     model.AssignmentRole,
			Config:   map[string]interface{}{"roles": []interface{}{"MANAGER_REVIEWER"}},
			Strategy: model.AnyOne,
			Template: &model.TaskTemplate{
				Name:        "Manager Review",
				Description: "Final managerial review and sign off",
				Priority:    "MEDIUM",
				DueIn:       "3d",
			},
		}).
		WithRule(&model.Rule{
			Name:       RuleFinanceApprovalRequired,
			Type:       model.RuleGuard,
			Expression: `{"amount": {"$gte": 500}}`,
			Config:     map[string]interface{}{"field": "amount", "default": true},
			Active:     true,
		}).
		WithRule(&model.Rule{
			Name:       RuleCeoApprovalRequired,
			Type:       model.RuleGuard,
			Expression: `{"amount": {"$gte": 10000}}`,
			Config:     map[string]interface{}{"field": "amount", "default": false},
			Active:     true,
		})
}
