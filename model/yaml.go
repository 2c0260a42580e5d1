package model

import (
	"fmt"
	"strings"

	"github.com/trackflow/trackflow/internal/yml"
	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a workflow definition from YAML.  States and
// assignments may be given either as sequences or as mappings keyed by
// state name.
func DecodeYAML(encoded []byte) (*Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	return parseDefinition((*yml.Node)(&node))
}

func parseDefinition(node *yml.Node) (*Definition, error) {
	rootNode := node
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		rootNode = (*yml.Node)(node.Content[0])
	}
	definition := &Definition{}
	err := rootNode.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			definition.Name = valueNode.Value
		case "version":
			definition.Version = valueNode.Value
		case "description":
			definition.Description = valueNode.Value
		case "createdby":
			definition.CreatedBy = valueNode.Value
		case "states":
			return parseStates(valueNode, definition)
		case "transitions":
			return valueNode.Items(func(_ int, itemNode *yml.Node) error {
				transition, err := parseTransition(itemNode)
				if err != nil {
					return err
				}
				definition.Transitions = append(definition.Transitions, transition)
				return nil
			})
		case "assignments":
			return parseAssignments(valueNode, definition)
		case "rules":
			return valueNode.Items(func(_ int, itemNode *yml.Node) error {
				rule, err := parseRule(itemNode)
				if err != nil {
					return err
				}
				definition.Rules = append(definition.Rules, rule)
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if issues := definition.Validate(); len(issues) > 0 {
		return nil, issues[0]
	}
	return definition, nil
}

func parseStates(node *yml.Node, definition *Definition) error {
	if node.Kind == yaml.MappingNode {
		order := 0
		return node.Pairs(func(name string, valueNode *yml.Node) error {
			order++
			state := &State{Name: name, Kind: StateNormal, Order: order}
			if err := applyStateFields(valueNode, state); err != nil {
				return err
			}
			definition.States = append(definition.States, state)
			return nil
		})
	}
	return node.Items(func(index int, itemNode *yml.Node) error {
		state := &State{Kind: StateNormal, Order: index + 1}
		if err := applyStateFields(itemNode, state); err != nil {
			return err
		}
		if state.Name == "" {
			return fmt.Errorf("state at position %d had no name", index)
		}
		definition.States = append(definition.States, state)
		return nil
	})
}

func applyStateFields(node *yml.Node, state *State) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	return node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			state.Name = valueNode.Value
		case "kind", "type":
			state.Kind = StateKind(strings.ToUpper(valueNode.Value))
		case "displayname":
			state.DisplayName = valueNode.Value
		case "description":
			state.Description = valueNode.Value
		case "order":
			if value, ok := valueNode.Interface().(int); ok {
				state.Order = value
			}
		}
		return nil
	})
}

func parseTransition(node *yml.Node) (*Transition, error) {
	transition := &Transition{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "from", "fromstate":
			transition.FromState = valueNode.Value
		case "to", "tostate":
			transition.ToState = valueNode.Value
		case "event":
			transition.Event = valueNode.Value
		case "displayname":
			transition.DisplayName = valueNode.Value
		case "description":
			transition.Description = valueNode.Value
		case "guard":
			transition.Guard = valueNode.Value
		case "order":
			if value, ok := valueNode.Interface().(int); ok {
				transition.Order = value
			}
		case "action":
			action := &ActionConfig{}
			err := valueNode.Pairs(func(actionKey string, actionNode *yml.Node) error {
				switch strings.ToLower(actionKey) {
				case "kind", "type":
					action.Kind = ActionKind(strings.ToUpper(actionNode.Value))
				case "config":
					if value, ok := actionNode.Interface().(map[string]interface{}); ok {
						action.Config = value
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			transition.Action = action
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transition.Event == "" || transition.ToState == "" {
		return nil, fmt.Errorf("transition required event and toState")
	}
	return transition, nil
}

func parseAssignments(node *yml.Node, definition *Definition) error {
	appendRule := func(state string, valueNode *yml.Node) error {
		rule := &AssignmentRule{State: state, Type: AssignmentRole, Strategy: AnyOne}
		err := valueNode.Pairs(func(key string, fieldNode *yml.Node) error {
			switch strings.ToLower(key) {
			case "state":
				rule.State = fieldNode.Value
			case "type":
				rule.Type = AssignmentType(strings.ToUpper(fieldNode.Value))
			case "strategy":
				rule.Strategy = CompletionStrategy(strings.ToUpper(fieldNode.Value))
			case "config":
				if value, ok := fieldNode.Interface().(map[string]interface{}); ok {
					rule.Config = value
				}
			case "template":
				template := &TaskTemplate{}
				err := fieldNode.Pairs(func(templateKey string, templateNode *yml.Node) error {
					switch strings.ToLower(templateKey) {
					case "name":
						template.Name = templateNode.Value
					case "description":
						template.Description = templateNode.Value
					case "priority":
						template.Priority = strings.ToUpper(templateNode.Value)
					case "duein":
						template.DueIn = templateNode.Value
					}
					return nil
				})
				if err != nil {
					return err
				}
				rule.Template = template
			}
			return nil
		})
		if err != nil {
			return err
		}
		definition.Assignments = append(definition.Assignments, rule)
		return nil
	}
	if node.Kind == yaml.MappingNode {
		return node.Pairs(appendRule)
	}
	return node.Items(func(_ int, itemNode *yml.Node) error {
		return appendRule("", itemNode)
	})
}

func parseRule(node *yml.Node) (*Rule, error) {
	rule := &Rule{Type: RuleGuard, Active: true}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			rule.Name = valueNode.Value
		case "type":
			rule.Type = RuleType(strings.ToUpper(valueNode.Value))
		case "expression":
			rule.Expression = valueNode.Value
		case "priority":
			if value, ok := valueNode.Interface().(int); ok {
				rule.Priority = value
			}
		case "active":
			if value, ok := valueNode.Interface().(bool); ok {
				rule.Active = value
			}
		case "config":
			if value, ok := valueNode.Interface().(map[string]interface{}); ok {
				rule.Config = value
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rule.Name == "" {
		return nil, fmt.Errorf("rule required a name")
	}
	return rule, nil
}
