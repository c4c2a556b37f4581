package transition

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/a-h/templ"

	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/router"
)

// scanFixture writes empty route files and scans them.
func scanFixture(t *testing.T, files ...string) *router.Manifest {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("package routes\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m, err := router.NewScanner(root, "gen").Scan()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newTestHandler(t *testing.T, reg *Registry, cfg Config, files ...string) *Handler {
	t.Helper()
	rt, err := NewRoutes(scanFixture(t, files...), map[string]string{"app.css": "/assets/app-1.css"}, "dev-1")
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(reg, cfg)
	if err := h.Swap(rt); err != nil {
		t.Fatal(err)
	}
	return h
}

// markup returns a component that writes s.
func markup(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

// textView renders a label plus the props that matter to assertions.
func textView(label string) Component {
	return func(p Props) templ.Component {
		s := "[" + label
		if p.Error != nil {
			s += fmt.Sprintf(" %d %s", p.Error.Status, p.Error.Message)
		}
		if d, ok := p.Data.(string); ok {
			s += " " + d
		}
		return markup(s + "]")
	}
}

func layoutView(label string) LayoutComponent {
	return func(_ Props, children templ.Component) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			io.WriteString(w, "<"+label+">")
			if err := children.Render(ctx, w); err != nil {
				return err
			}
			_, err := io.WriteString(w, "</"+label+">")
			return err
		})
	}
}

func loaderOf(v any) LoaderFunc {
	return func(*RequestContext) (any, error) { return v, nil }
}

func failing(err error) LoaderFunc {
	return func(*RequestContext) (any, error) { return nil, err }
}

// transition calls the endpoint and decodes every chunk.
func transition(t *testing.T, h http.Handler, to string) (*httptest.ResponseRecorder, []protocol.Chunk) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, DefaultTransitionPath+"?to="+url.QueryEscape(to), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		return rec, nil
	}
	if ct := rec.Header().Get("Content-Type"); ct != protocol.ContentType {
		t.Fatalf("Content-Type = %q", ct)
	}
	var p protocol.Parser
	chunks, err := p.Feed(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("parse %q: %v", rec.Body.String(), err)
	}
	return rec, chunks
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}
