package trackflow

import (
	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/runtime/engine"
	"github.com/trackflow/trackflow/service/action/assign"
	"github.com/trackflow/trackflow/service/action/notify"
	"github.com/trackflow/trackflow/service/action/process"
	"github.com/trackflow/trackflow/service/assignment"
	"github.com/trackflow/trackflow/service/definition"
	"github.com/trackflow/trackflow/service/directory"
	"github.com/trackflow/trackflow/service/history"
	"github.com/trackflow/trackflow/service/notification"
	nmemory "github.com/trackflow/trackflow/service/notification/memory"
	"github.com/trackflow/trackflow/service/task"
	"github.com/viant/x"
)

// Service assembles the workflow engine with its collaborators.
type Service struct {
	runtime        *Runtime
	config         *Config
	directory      directory.Directory
	notifier       notification.Notifier
	actions        *extension.Actions
	extensionTypes []*x.Type
	actionHandlers []extension.Handler
	definitionURL  string
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.runtime.definitions = definition.New()
	s.runtime.loader = definition.NewLoader()
	s.runtime.history = history.New()
	s.runtime.directory = s.directory
	s.runtime.notifier = s.notifier
	s.runtime.tasks = task.New(s.runtime.history, s.directory, s.notifier)
	s.runtime.resolver = assignment.New(s.directory)
	s.runtime.definitionURL = s.definitionURL

	s.actions = extension.NewActions(s.extensionTypes...)
	assignService := assign.New(s.runtime.definitions, s.runtime.resolver, s.runtime.tasks, s.actions)
	s.actions.Register(assignService.NewGroupHandler())
	s.actions.Register(assignService.NewSingleHandler())
	s.actions.Register(process.New(s.runtime.tasks))
	s.actions.Register(notify.New(s.notifier, s.actions))
	for _, handler := range s.actionHandlers {
		s.actions.Register(handler)
	}
	s.runtime.actions = s.actions
	s.runtime.engine = engine.New(s.runtime.definitions, s.runtime.history, s.runtime.tasks, s.actions)
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.directory == nil {
		s.directory = directory.NewStatic()
	}
	if s.notifier == nil {
		s.notifier = nmemory.NewQueue(s.config.Notification)
	}
	if s.definitionURL == "" {
		s.definitionURL = s.config.Definitions.BaseURL
	}
}

// RegisterExtensionTypes registers additional action parameter types.
func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.actions.Types().Register(types[i])
	}
}

// RegisterActionHandlers registers additional transition action handlers.
func (s *Service) RegisterActionHandlers(handlers ...extension.Handler) {
	for i := range handlers {
		s.actions.Register(handlers[i])
	}
}

// Runtime returns the assembled runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates a service with the supplied options.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
