package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDefinition() *Definition {
	return NewDefinition("expense", "1.0.0").
		WithCreatedBy("system").
		WithState(&State{Name: "NEW", Kind: StateInitial, Order: 1}).
		WithState(&State{Name: "REVIEW", Kind: StateNormal, Order: 2}).
		WithState(&State{Name: "CLOSED", Kind: StateEnd, Order: 3}).
		WithTransition(&Transition{FromState: "NEW", ToState: "REVIEW", Event: "SUBMIT"}).
		WithTransition(&Transition{FromState: "REVIEW", ToState: "CLOSED", Event: "APPROVE"}).
		WithAssignment(&AssignmentRule{
			State:    "REVIEW",
			Type:     AssignmentRole,
			Strategy: AnyOne,
			Config:   map[string]interface{}{"roles": []interface{}{"REVIEWER"}},
		})
}

func TestDefinition_Validate(t *testing.T) {
	type testCase struct {
		description string
		mutate      func(d *Definition)
		expectIssue bool
	}
	testCases := []testCase{
		{
			description: "valid definition",
			mutate:      func(d *Definition) {},
		},
		{
			description: "two initial states",
			mutate: func(d *Definition) {
				d.States = append(d.States, &State{Name: "ALT", Kind: StateInitial})
			},
			expectIssue: true,
		},
		{
			description: "no end state",
			mutate: func(d *Definition) {
				d.States[2].Kind = StateNormal
			},
			expectIssue: true,
		},
		{
			description: "transition to unknown state",
			mutate: func(d *Definition) {
				d.Transitions[0].ToState = "NOWHERE"
			},
			expectIssue: true,
		},
		{
			description: "assignment for unknown state",
			mutate: func(d *Definition) {
				d.Assignments[0].State = "NOWHERE"
			},
			expectIssue: true,
		},
		{
			description: "unknown completion strategy",
			mutate: func(d *Definition) {
				d.Assignments[0].Strategy = "MOST"
			},
			expectIssue: true,
		},
		{
			description: "duplicate state name",
			mutate: func(d *Definition) {
				d.States = append(d.States, &State{Name: "REVIEW", Kind: StateNormal})
			},
			expectIssue: true,
		},
	}
	for _, tc := range testCases {
		def := testDefinition()
		tc.mutate(def)
		issues := def.Validate()
		if tc.expectIssue {
			assert.NotEmpty(t, issues, tc.description)
		} else {
			assert.Empty(t, issues, tc.description)
		}
	}
}

func TestDefinition_CloneIsolation(t *testing.T) {
	def := testDefinition()
	cloned := def.Clone()
	cloned.States[0].Name = "CHANGED"
	cloned.Transitions[0].Event = "CHANGED"
	cloned.Assignments[0].Config["roles"] = []interface{}{"OTHER"}
	assert.EqualValues(t, "NEW", def.States[0].Name)
	assert.EqualValues(t, "SUBMIT", def.Transitions[0].Event)
	assert.EqualValues(t, []string{"REVIEWER"}, def.Assignments[0].Roles())
}

func TestDefinition_CloneMeta(t *testing.T) {
	def := testDefinition()
	def.Active = true
	next := def.CloneMeta("2.0.0", "U1003")
	assert.EqualValues(t, "2.0.0", next.Version)
	assert.False(t, next.Active)
	assert.EqualValues(t, "U1003", next.CreatedBy)
	assert.EqualValues(t, "Cloned from version 1.0.0", next.Description)
	assert.EqualValues(t, len(def.States), len(next.States))
}

func TestCompletionStrategy_RequiredCompletions(t *testing.T) {
	assert.EqualValues(t, 1, AnyOne.RequiredCompletions(5))
	assert.EqualValues(t, 5, AllRequired.RequiredCompletions(5))
	assert.EqualValues(t, 3, Majority.RequiredCompletions(5))
	assert.EqualValues(t, 3, Majority.RequiredCompletions(4))
	assert.EqualValues(t, 1, CompletionStrategy("UNKNOWN").RequiredCompletions(5))
}
