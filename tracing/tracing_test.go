package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestStartSpanNoProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "unit.test", "INTERNAL")
	if span == nil {
		t.Fatal("expected span")
	}
	span.WithAttributes(map[string]string{"key": "value"})
	if _, ok := SpanFromContext(ctx); !ok {
		t.Fatal("expected span in context")
	}
	EndSpan(span, errors.New("boom"))
	EndSpan(nil, nil)
}
