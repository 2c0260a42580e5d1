package yml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, text string) *Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatal(err)
	}
	return (*Node)(doc.Content[0])
}

func TestNode_Interface(t *testing.T) {
	node := decode(t, `
name: review
order: 2
weight: 1.5
active: true
tags:
  - a
  - b
`)
	value, ok := node.Interface().(map[string]interface{})
	if !ok {
		t.Fatalf("expected a map, had %T", node.Interface())
	}
	assert.EqualValues(t, "review", value["name"])
	assert.EqualValues(t, 2, value["order"])
	assert.EqualValues(t, 1.5, value["weight"])
	assert.EqualValues(t, true, value["active"])
	assert.EqualValues(t, []interface{}{"a", "b"}, value["tags"])
}

func TestNode_Pairs(t *testing.T) {
	node := decode(t, "first: 1\nsecond: 2\n")
	var keys []string
	err := node.Pairs(func(key string, value *Node) error {
		keys = append(keys, key)
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"first", "second"}, keys)
}
