package otel

import (
	"context"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/eatingfood142434/Hackthe6ix/observe"
)

func TestSinkEmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	sink := NewSink(tp)

	now := time.Now()
	err := sink.Emit(context.Background(), observe.Event{
		Kind:       observe.KindRun,
		RunID:      "run-123",
		SessionID:  "sess-456",
		Status:     observe.StatusCompleted,
		Timestamp:  now,
		DurationMs: 150,
	})
	if err != nil {
		t.Fatal(err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if span.Name != "workflow.run" {
		t.Errorf("expected span name 'workflow.run', got %q", span.Name)
	}

	attrMap := map[string]string{}
	for _, kv := range span.Attributes {
		attrMap[string(kv.Key)] = kv.Value.AsString()
	}
	if v, ok := attrMap["workflow.run.id"]; !ok || v != "run-123" {
		t.Errorf("missing or wrong workflow.run.id: %v", attrMap)
	}
	if v, ok := attrMap["workflow.session.id"]; !ok || v != "sess-456" {
		t.Errorf("missing or wrong workflow.session.id: %v", attrMap)
	}
}

func TestSpanNaming(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	sink := NewSink(tp)
	now := time.Now()

	tests := []struct {
		event    observe.Event
		wantName string
	}{
		{observe.Event{Kind: observe.KindProvider, Provider: "openai", Timestamp: now}, "workflow.llm.openai"},
		{observe.Event{Kind: observe.KindNode, NodeID: "vuln_scanner", Timestamp: now}, "workflow.node.vuln_scanner"},
		{observe.Event{Kind: observe.KindCheckpoint, Timestamp: now}, "workflow.checkpoint"},
		{observe.Event{Kind: observe.KindCustom, Name: "custom_event", Timestamp: now}, "workflow.custom_event"},
	}

	for _, tt := range tests {
		exporter.Reset()
		_ = sink.Emit(context.Background(), tt.event)
		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Errorf("expected 1 span for %s, got %d", tt.wantName, len(spans))
			continue
		}
		if spans[0].Name != tt.wantName {
			t.Errorf("expected span name %q, got %q", tt.wantName, spans[0].Name)
		}
	}
}

func TestFailedEventMarksSpanError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	sink := NewSink(tp)
	_ = sink.Emit(context.Background(), observe.Event{
		Kind:      observe.KindNode,
		NodeID:    "patcher",
		Status:    observe.StatusFailed,
		Error:     "invocation timed out",
		Timestamp: time.Now(),
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Description != "invocation timed out" {
		t.Errorf("unexpected span status: %+v", spans[0].Status)
	}
}
