package interceptors

import (
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracingHandler(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(t.Context()) }()

	if NewTracingHandler(TracingOptions{TracerProvider: tp}) == nil {
		t.Fatalf("expected stats handler")
	}
	if TracingServerOption(TracingOptions{}) == nil {
		t.Fatalf("expected server option")
	}
}
