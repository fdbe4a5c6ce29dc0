package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"graphql-preload/internal/planner"
	"graphql-preload/internal/store"
	"graphql-preload/internal/testutil"
)

func installResolverSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(oldProvider)
	})
	return recorder
}

func findEndedSpanByName(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, span := range spans {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

func readSpanString(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}

func readSpanInt(attrs []attribute.KeyValue, key string) int64 {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsInt64()
		}
	}
	return -1
}

func TestResolveRecordEmitsSpan(t *testing.T) {
	tests := []struct {
		name    string
		data    *fakeData
		plan    planner.Plan
		lookup  Lookup
		outcome string
		format  string
		isError bool
	}{
		{
			name:    "success",
			data:    &fakeData{record: store.Record{"id": int64(1)}},
			plan:    planner.Plan{planner.Leaf("product"), planner.Nest("orders", planner.Leaf("line_items"))},
			lookup:  Lookup{Key: "1"},
			outcome: "success",
		},
		{
			name:    "fallback",
			data:    &fakeData{reject: &store.InvalidIncludeError{Relation: "fake_model"}, record: store.Record{"id": int64(1)}},
			plan:    planner.Plan{planner.Leaf("fake_model")},
			lookup:  Lookup{Key: testUUID, UseUUID: true},
			outcome: "fallback",
			format:  "canonical",
		},
		{
			name:    "not found is not a span error",
			data:    &fakeData{err: &store.NotFoundError{Model: "Customer", Column: "uuid", Key: "LEGACY-9"}},
			lookup:  Lookup{Key: "LEGACY-9", UseUUID: true},
			outcome: "not_found",
			format:  "opaque",
		},
		{
			name:    "driver error",
			data:    &fakeData{err: errors.New("connection reset")},
			lookup:  Lookup{Key: "9"},
			outcome: "error",
			isError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := installResolverSpanRecorder(t)
			registry := testutil.ShopRegistry()
			r, err := New(customerModel(t, registry), tt.data, registry, WithPlanner(stubPlanner{plan: tt.plan}))
			require.NoError(t, err)

			_, _ = r.ResolveRecord(context.Background(), tt.lookup, nil, nil)

			span := findEndedSpanByName(recorder.Ended(), "resolver.find")
			require.NotNil(t, span)
			attrs := span.Attributes()
			assert.Equal(t, "Customer", readSpanString(attrs, "graphql.resolver.model"))
			assert.Equal(t, tt.lookup.kind(), readSpanString(attrs, "graphql.resolver.lookup"))
			assert.Equal(t, int64(tt.plan.Size()), readSpanInt(attrs, "graphql.resolver.plan_size"))
			assert.Equal(t, int64(tt.plan.Depth()), readSpanInt(attrs, "graphql.resolver.plan_depth"))
			assert.Equal(t, tt.format, readSpanString(attrs, "graphql.resolver.uuid_format"))
			assert.Equal(t, tt.outcome, readSpanString(attrs, "graphql.resolver.outcome"))
			if tt.isError {
				assert.Equal(t, codes.Error, span.Status().Code)
				assert.NotEmpty(t, span.Events())
			} else {
				assert.NotEqual(t, codes.Error, span.Status().Code)
				assert.Empty(t, span.Events())
			}
		})
	}
}
