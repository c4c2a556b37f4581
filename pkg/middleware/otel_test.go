package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/transit/pkg/transition"
)

type recordedSpan struct {
	noop.Span

	mu     sync.Mutex
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *recordedSpan) End(...trace.SpanEndOption) {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

type recordingTracer struct {
	noop.Tracer
	spans *[]*recordedSpan
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	s.SetAttributes(cfg.Attributes()...)
	*t.spans = append(*t.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordingProvider struct {
	noop.TracerProvider
	spans []*recordedSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{spans: &p.spans}
}

func TestOpenTelemetryStoresTraceContext(t *testing.T) {
	tp := &recordingProvider{}
	rc := newRequestContext("users-id", "/users/:id", "/users/7?tab=posts")
	original := rc.Request.Context()

	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(*transition.RequestContext) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	_, err := mw.Handle(rc, func() (any, error) {
		span := SpanFromContext(rc)
		if span == nil {
			t.Fatal("expected SpanFromContext to return a span during execution")
		}
		if trace.SpanFromContext(rc.Context()) != span {
			t.Fatal("expected the request context to carry the span")
		}
		if TraceContext(rc) == original {
			t.Fatal("expected TraceContext to differ from the incoming context")
		}
		return "data", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tp.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tp.spans))
	}
	s := tp.spans[0]
	if s.name != "transit /users/:id" {
		t.Fatalf("span name = %q", s.name)
	}
	want := map[attribute.Key]string{
		"transit.route_id": "users-id",
		"transit.route":    "/users/:id",
		"transit.target":   "/users/7?tab=posts",
		"http.method":      "GET",
		"test.attr":        "ok",
	}
	for k, v := range want {
		if got := s.attrs[k].AsString(); got != v {
			t.Errorf("attr %s = %q, want %q", k, got, v)
		}
	}
	if s.status != codes.Ok {
		t.Fatalf("status = %v, want Ok", s.status)
	}
	if !s.ended {
		t.Fatal("expected span to be ended")
	}
}

func TestOpenTelemetryErrors(t *testing.T) {
	t.Run("uncaught error is recorded", func(t *testing.T) {
		tp := &recordingProvider{}
		rc := newRequestContext("index", "/", "/")
		wantErr := errors.New("boom")

		_, err := OpenTelemetry(WithTracerProvider(tp)).Handle(rc, func() (any, error) { return nil, wantErr })
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected error %v, got %v", wantErr, err)
		}
		s := tp.spans[0]
		if s.status != codes.Error || len(s.errs) != 1 {
			t.Fatalf("status = %v errs = %v", s.status, s.errs)
		}
		if SpanFromContext(rc) == nil {
			t.Fatal("expected span to remain reachable after the chain returns")
		}
	})

	t.Run("caught error is an attribute", func(t *testing.T) {
		tp := &recordingProvider{}
		rc := newRequestContext("index", "/", "/")

		_, err := OpenTelemetry(WithTracerProvider(tp)).Handle(rc, func() (any, error) {
			return nil, transition.NotFoundError(nil)
		})
		if err == nil {
			t.Fatal("expected caught error to propagate")
		}
		s := tp.spans[0]
		if s.status != codes.Unset || len(s.errs) != 0 {
			t.Fatalf("status = %v errs = %v, want unset and none", s.status, s.errs)
		}
		if got := s.attrs["transit.caught_status"].AsInt64(); got != 404 {
			t.Fatalf("caught_status = %d, want 404", got)
		}
	})

	t.Run("redirect location", func(t *testing.T) {
		tp := &recordingProvider{}
		rc := newRequestContext("index", "/", "/")

		if _, err := OpenTelemetry(WithTracerProvider(tp)).Handle(rc, func() (any, error) {
			return transition.RedirectTo("/login"), nil
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := tp.spans[0].attrs["transit.redirect"].AsString(); got != "/login" {
			t.Fatalf("redirect attr = %q", got)
		}
	})
}

func TestOpenTelemetryFilterSkipsTracing(t *testing.T) {
	tp := &recordingProvider{}
	rc := newRequestContext("healthz", "/healthz", "/healthz")

	nextCalled := false
	_, err := OpenTelemetry(
		WithTracerProvider(tp),
		WithFilter(func(rc *transition.RequestContext) bool { return rc.Route.ID != "healthz" }),
	).Handle(rc, func() (any, error) {
		nextCalled = true
		if SpanFromContext(rc) != nil {
			t.Fatal("expected no span when filter skips tracing")
		}
		return nil, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !nextCalled {
		t.Fatal("expected next to be called")
	}
	if len(tp.spans) != 0 {
		t.Fatalf("spans = %d, want 0", len(tp.spans))
	}
	if TraceContext(rc) != rc.Context() {
		t.Fatal("expected TraceContext to fall back to the request context")
	}
}

func TestOpenTelemetryWithoutRoute(t *testing.T) {
	tp := &recordingProvider{}
	rc := newRequestContext("", "", "/missing")

	if _, err := OpenTelemetry(WithTracerProvider(tp), WithIncludeRoute(true)).Handle(rc, func() (any, error) { return nil, nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := tp.spans[0]
	if s.name != "transit /missing" {
		t.Fatalf("span name = %q", s.name)
	}
	if _, ok := s.attrs["transit.route_id"]; ok {
		t.Fatal("route attributes must be absent without a route")
	}
}

func TestSpanFromContextNoSpan(t *testing.T) {
	rc := newRequestContext("index", "/", "/")
	if SpanFromContext(rc) != nil {
		t.Fatal("expected nil span when no span context is stored")
	}
}
