package engine

import (
	"sort"

	"github.com/trackflow/trackflow/model"
)

type tableKey struct {
	from  string
	event string
}

// Table is the transition lookup structure built once per definition.
// Candidates for a (fromState, event) pair keep a deterministic order:
// transition Order first, then position in the definition.
type Table struct {
	candidates map[tableKey][]*model.Transition
	bootstrap  []*model.Transition
}

// NewTable builds the transition table of a definition.
func NewTable(definition *model.Definition) *Table {
	ret := &Table{candidates: make(map[tableKey][]*model.Transition)}
	type indexed struct {
		transition *model.Transition
		position   int
	}
	grouped := make(map[tableKey][]indexed)
	for position, transition := range definition.Transitions {
		if transition.IsBootstrap() {
			ret.bootstrap = append(ret.bootstrap, transition)
			continue
		}
		key := tableKey{from: transition.FromState, event: transition.Event}
		grouped[key] = append(grouped[key], indexed{transition: transition, position: position})
	}
	for key, candidates := range grouped {
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].transition.Order != candidates[j].transition.Order {
				return candidates[i].transition.Order < candidates[j].transition.Order
			}
			return candidates[i].position < candidates[j].position
		})
		ordered := make([]*model.Transition, len(candidates))
		for i, candidate := range candidates {
			ordered[i] = candidate.transition
		}
		ret.candidates[key] = ordered
	}
	return ret
}

// Lookup returns the ordered transition candidates for a state and event.
func (t *Table) Lookup(from, event string) []*model.Transition {
	return t.candidates[tableKey{from: from, event: event}]
}

// Bootstrap returns the transitions fired on instance start.
func (t *Table) Bootstrap() []*model.Transition {
	return t.bootstrap
}

// Events returns the events accepted in the supplied state.
func (t *Table) Events(from string) []string {
	var ret []string
	for key := range t.candidates {
		if key.from == from {
			ret = append(ret, key.event)
		}
	}
	sort.Strings(ret)
	return ret
}
