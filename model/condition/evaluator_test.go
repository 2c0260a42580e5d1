package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	data := map[string]interface{}{
		"amount":   750.0,
		"urgent":   true,
		"category": "CAPEX",
		"owner":    nil,
	}
	ambient := map[string]interface{}{
		KeyCurrentState: "PENDING_PLANNING_BUSINESS_REVIEW",
		KeyTargetState:  "PENDING_PLANNING_FINANCE_APPROVAL",
		KeyEvent:        "PLANNING_BUSINESS_SUBMIT",
	}

	type testCase struct {
		description string
		expression  string
		expect      bool
	}

	testCases := []testCase{
		{
			description: "empty expression passes",
			expression:  "",
			expect:      true,
		},
		{
			description: "whitespace expression passes",
			expression:  "   \n\t",
			expect:      true,
		},
		{
			description: "malformed json fails closed",
			expression:  `{"amount": `,
			expect:      false,
		},
		{
			description: "non object root fails closed",
			expression:  `["amount"]`,
			expect:      false,
		},
		{
			description: "equality shorthand string",
			expression:  `{"category": "CAPEX"}`,
			expect:      true,
		},
		{
			description: "equality shorthand number",
			expression:  `{"amount": 750}`,
			expect:      true,
		},
		{
			description: "equality shorthand boolean",
			expression:  `{"urgent": true}`,
			expect:      true,
		},
		{
			description: "missing field equals only null",
			expression:  `{"missing": null}`,
			expect:      true,
		},
		{
			description: "null field does not equal literal",
			expression:  `{"owner": "U1000"}`,
			expect:      false,
		},
		{
			description: "gte operator",
			expression:  `{"amount": {"$gte": 500}}`,
			expect:      true,
		},
		{
			description: "lt operator",
			expression:  `{"amount": {"$lt": 500}}`,
			expect:      false,
		},
		{
			description: "ordering on non numeric fails",
			expression:  `{"category": {"$gt": 10}}`,
			expect:      false,
		},
		{
			description: "multiple operators are anded",
			expression:  `{"amount": {"$gte": 500, "$lte": 1000}}`,
			expect:      true,
		},
		{
			description: "unknown operator fails closed",
			expression:  `{"amount": {"$between": [1, 2]}}`,
			expect:      false,
		},
		{
			description: "in operator",
			expression:  `{"category": {"$in": ["OPEX", "CAPEX"]}}`,
			expect:      true,
		},
		{
			description: "nin operator",
			expression:  `{"category": {"$nin": ["OPEX"]}}`,
			expect:      true,
		},
		{
			description: "and combinator",
			expression:  `{"$and": [{"amount": {"$gt": 100}}, {"urgent": true}]}`,
			expect:      true,
		},
		{
			description: "and with non array operand fails closed",
			expression:  `{"$and": {"urgent": true}}`,
			expect:      false,
		},
		{
			description: "or combinator",
			expression:  `{"$or": [{"amount": {"$lt": 100}}, {"urgent": true}]}`,
			expect:      true,
		},
		{
			description: "not combinator",
			expression:  `{"$not": {"category": "OPEX"}}`,
			expect:      true,
		},
		{
			description: "implicit and across fields",
			expression:  `{"category": "CAPEX", "amount": {"$lt": 100}}`,
			expect:      false,
		},
		{
			description: "ambient context resolution",
			expression:  `{"event": "PLANNING_BUSINESS_SUBMIT"}`,
			expect:      true,
		},
		{
			description: "instance data shadows ambient context",
			expression:  `{"currentState": "PENDING_PLANNING_BUSINESS_REVIEW"}`,
			expect:      true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			actual := Evaluate(testCase.expression, data, ambient)
			assert.EqualValues(t, testCase.expect, actual, testCase.description)
		})
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	data := map[string]interface{}{"amount": 499.99}
	expression := `{"$or": [{"amount": {"$gte": 500}}, {"override": true}]}`
	first := Evaluate(expression, data, nil)
	for i := 0; i < 100; i++ {
		if actual := Evaluate(expression, data, nil); actual != first {
			t.Fatalf("evaluation was not deterministic at iteration %d", i)
		}
	}
	assert.False(t, first)
}
