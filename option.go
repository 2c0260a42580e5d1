package trackflow

import (
	"time"

	"github.com/trackflow/trackflow/extension"
	"github.com/trackflow/trackflow/internal/clock"
	"github.com/trackflow/trackflow/service/directory"
	"github.com/trackflow/trackflow/service/notification"
	"github.com/trackflow/trackflow/tracing"
	"github.com/viant/x"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customizes the service assembly.
type Option func(s *Service)

// WithConfig sets the service configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithDirectory sets the identity directory.
func WithDirectory(dir directory.Directory) Option {
	return func(s *Service) { s.directory = dir }
}

// WithNotifier sets the notification sink.
func WithNotifier(notifier notification.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithExtensionTypes registers additional action parameter types.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = append(s.extensionTypes, types...)
	}
}

// WithActionHandlers registers additional transition action handlers.
func WithActionHandlers(handlers ...extension.Handler) Option {
	return func(s *Service) {
		s.actionHandlers = append(s.actionHandlers, handlers...)
	}
}

// WithDefinitionURL sets the base URL workflow definitions are loaded from
// via Runtime.LoadDefinitions.
func WithDefinitionURL(URL string) Option {
	return func(s *Service) { s.definitionURL = URL }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { clock.NowFunc = now }
}

// WithTracing configures OpenTelemetry tracing for the service. If
// outputFile is empty the stdout exporter is used; otherwise traces are
// written to the supplied file path. Safe to call multiple times, the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
