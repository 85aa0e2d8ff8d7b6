package telemetry

import (
	"context"
	"testing"
)

func TestNewTracerProviderNoopWhenEndpointEmpty(t *testing.T) {
	tp, shutdown, err := NewTracerProvider(context.Background(), "", "fleet-manager")
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	if tp == nil {
		t.Fatal("tracer provider = nil")
	}
	if shutdown == nil {
		t.Fatal("shutdown func = nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() = %v, want nil", err)
	}

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	span.End()
}
