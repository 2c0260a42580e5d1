// Package condition implements the JSON expression language used for
// transition guards and named business rules.  Evaluation is deterministic,
// side-effect free and fails closed: malformed input never panics, it
// evaluates to false.
package condition

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/viant/toolbox"
)

// Ambient context keys populated by the engine for guard evaluation.
const (
	KeyCurrentState = "currentState"
	KeyTargetState  = "targetState"
	KeyEvent        = "event"
)

// Evaluate evaluates a condition expression against instance data and the
// ambient evaluation context.  An empty expression evaluates to true; a
// malformed one to false.
func Evaluate(expression string, data, ambient map[string]interface{}) bool {
	text := strings.TrimSpace(expression)
	if text == "" {
		return true
	}
	var root interface{}
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return false
	}
	object, ok := root.(map[string]interface{})
	if !ok {
		return false
	}
	return evalObject(object, data, ambient)
}

// evalObject evaluates a condition object.  Multiple entries are implicitly
// ANDed.
func evalObject(object map[string]interface{}, data, ambient map[string]interface{}) bool {
	for key, operand := range object {
		var ok bool
		switch key {
		case "$and":
			ok = evalAll(operand, data, ambient)
		case "$or":
			ok = evalAny(operand, data, ambient)
		case "$not":
			inner, isObject := operand.(map[string]interface{})
			ok = isObject && !evalObject(inner, data, ambient)
		default:
			ok = evalField(key, operand, data, ambient)
		}
		if !ok {
			return false
		}
	}
	return true
}

func evalAll(operand interface{}, data, ambient map[string]interface{}) bool {
	items, ok := operand.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		object, isObject := item.(map[string]interface{})
		if !isObject || !evalObject(object, data, ambient) {
			return false
		}
	}
	return true
}

func evalAny(operand interface{}, data, ambient map[string]interface{}) bool {
	items, ok := operand.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if object, isObject := item.(map[string]interface{}); isObject && evalObject(object, data, ambient) {
			return true
		}
	}
	return false
}

// evalField evaluates a single field condition.  The operand is either an
// operator object or a literal shorthand for equality.
func evalField(field string, operand interface{}, data, ambient map[string]interface{}) bool {
	value, _ := resolve(field, data, ambient)
	operators, isObject := operand.(map[string]interface{})
	if !isObject {
		return equals(value, operand)
	}
	for name, expected := range operators {
		if !evalOperator(name, value, expected) {
			return false
		}
	}
	return true
}

func evalOperator(name string, value, expected interface{}) bool {
	switch name {
	case "$eq":
		return equals(value, expected)
	case "$ne":
		return !equals(value, expected)
	case "$gt":
		return compare(value, expected, func(a, b float64) bool { return a > b })
	case "$gte":
		return compare(value, expected, func(a, b float64) bool { return a >= b })
	case "$lt":
		return compare(value, expected, func(a, b float64) bool { return a < b })
	case "$lte":
		return compare(value, expected, func(a, b float64) bool { return a <= b })
	case "$in":
		return in(value, expected)
	case "$nin":
		return !in(value, expected)
	}
	return false
}

// resolve looks a field up in instance data first, then in the ambient
// context.  The second result reports whether the field was present at all.
func resolve(field string, data, ambient map[string]interface{}) (interface{}, bool) {
	if data != nil {
		if value, ok := data[field]; ok {
			return value, true
		}
	}
	if ambient != nil {
		if value, ok := ambient[field]; ok {
			return value, true
		}
	}
	return nil, false
}

// equals compares a resolved field value against an expression literal.
// Strings compare textually, numbers as float64, booleans exactly.  A nil
// field value equals only a JSON null literal.
func equals(value, expected interface{}) bool {
	if expected == nil {
		return value == nil
	}
	if value == nil {
		return false
	}
	switch actual := expected.(type) {
	case string:
		return fmt.Sprint(value) == actual
	case float64:
		number, ok := asNumber(value)
		return ok && number == actual
	case bool:
		flag, ok := value.(bool)
		return ok && flag == actual
	}
	return reflect.DeepEqual(value, expected)
}

func compare(value, expected interface{}, op func(a, b float64) bool) bool {
	left, leftOk := asNumber(value)
	right, rightOk := asNumber(expected)
	return leftOk && rightOk && op(left, right)
}

func in(value, expected interface{}) bool {
	items, ok := expected.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if equals(value, item) {
			return true
		}
	}
	return false
}

func asNumber(value interface{}) (float64, bool) {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		number, err := toolbox.ToFloat(value)
		return number, err == nil
	}
	return 0, false
}
