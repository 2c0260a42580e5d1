package extension

import (
	"context"
	"sync"

	"github.com/trackflow/trackflow/model"
	"github.com/viant/structology/conv"
	"github.com/viant/x"
)

// Frame carries the execution context handed to an action handler when a
// transition fires.
type Frame struct {
	InstanceID      string
	WorkflowName    string
	WorkflowVersion string
	InitiatorID     string
	UserID          string
	FromState       string
	ToState         string
	Event           string
	Data            map[string]interface{}
	Config          map[string]interface{}
}

// Handler executes one action kind.
type Handler interface {
	Kind() model.ActionKind
	Exec(ctx context.Context, frame *Frame) error
}

// TypeIniter is implemented by handlers that register parameter types.
type TypeIniter interface {
	InitTypes(types *Types)
}

// Actions provides the closed action handler registry.
type Actions struct {
	types     *Types
	handlers  map[model.ActionKind]Handler
	converter *conv.Converter
	mux       sync.RWMutex
}

func (s *Actions) Types() *Types {
	return s.types
}

// Lookup returns a handler by kind, or nil for unknown kinds.
func (s *Actions) Lookup(kind model.ActionKind) Handler {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.handlers[kind]
}

// Register registers a handler.
func (s *Actions) Register(handler Handler) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if typer, ok := handler.(TypeIniter); ok {
		typer.InitTypes(s.types)
	}
	s.handlers[handler.Kind()] = handler
}

// Kinds returns the registered kinds.
func (s *Actions) Kinds() []model.ActionKind {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]model.ActionKind, 0, len(s.handlers))
	for kind := range s.handlers {
		ret = append(ret, kind)
	}
	return ret
}

// DecodeConfig converts a raw action config into a typed parameter struct.
func (s *Actions) DecodeConfig(config map[string]interface{}, target interface{}) error {
	if len(config) == 0 {
		return nil
	}
	return s.converter.Convert(config, target)
}

// NewActions creates a new action registry.
func NewActions(goTypes ...*x.Type) *Actions {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	ret := &Actions{
		types:     NewTypes(),
		handlers:  make(map[model.ActionKind]Handler),
		converter: conv.NewConverter(options),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
