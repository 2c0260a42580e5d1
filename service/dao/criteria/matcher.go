package criteria

import (
	"strings"

	"github.com/trackflow/trackflow/service/dao"
)

// Matches reports whether an entity, projected onto its filterable fields,
// satisfies every supplied parameter.  A parameter value is a string or a
// []string matched as any-of.  A parameter name with a "Not" suffix inverts
// the match for that field, e.g. StatusNot=SKIPPED.
func Matches(fields map[string]string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		name := parameter.Name
		negated := false
		if strings.HasSuffix(name, "Not") {
			name = strings.TrimSuffix(name, "Not")
			negated = true
		}
		actual, ok := fields[name]
		if !ok {
			// unknown criteria never filter anything out
			continue
		}
		matched := matchValue(actual, parameter.Value)
		if negated {
			matched = !matched
		}
		if !matched {
			return false
		}
	}
	return true
}

func matchValue(actual string, expected interface{}) bool {
	switch value := expected.(type) {
	case string:
		return actual == value
	case []string:
		for _, candidate := range value {
			if actual == candidate {
				return true
			}
		}
		return false
	}
	return true
}
