package assignment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/directory"
)

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	resolver := New(directory.NewStatic())

	type testCase struct {
		description string
		rule        *model.AssignmentRule
		expected    []string
	}

	testCases := []testCase{
		{
			description: "nil rule resolves to no assignees",
			rule:        nil,
			expected:    nil,
		},
		{
			description: "role rule unions directory lookups",
			rule: &model.AssignmentRule{
				State:  "REVIEW",
				Type:   model.AssignmentRole,
				Config: map[string]interface{}{"roles": []interface{}{"OWNER", "SPONSOR"}},
			},
			expected: []string{"U1002", "U1006", "U1009", "U1001", "U1005"},
		},
		{
			description: "overlapping roles are deduplicated",
			rule: &model.AssignmentRule{
				State:  "REVIEW",
				Type:   model.AssignmentRole,
				Config: map[string]interface{}{"roles": []interface{}{"SPONSOR", "OWNER"}},
			},
			expected: []string{"U1001", "U1005", "U1006", "U1002", "U1009"},
		},
		{
			description: "user rule takes configured ids verbatim",
			rule: &model.AssignmentRule{
				State:  "REVIEW",
				Type:   model.AssignmentUser,
				Config: map[string]interface{}{"users": []interface{}{"U1008", "U9999"}},
			},
			expected: []string{"U1008", "U9999"},
		},
		{
			description: "dynamic rule resolves empty",
			rule: &model.AssignmentRule{
				State: "REVIEW",
				Type:  model.AssignmentDynamic,
			},
			expected: nil,
		},
		{
			description: "unknown role resolves empty",
			rule: &model.AssignmentRule{
				State:  "REVIEW",
				Type:   model.AssignmentRole,
				Config: map[string]interface{}{"roles": "NO_SUCH_ROLE"},
			},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			actual, err := resolver.Resolve(ctx, tc.rule)
			assert.NoError(t, err)
			assert.EqualValues(t, tc.expected, actual)
		})
	}
}
