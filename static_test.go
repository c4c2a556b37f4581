package transit

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var fallthroughHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "route", http.StatusTeapot)
})

func serveStatic(s *staticFiles, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.wrap(fallthroughHandler).ServeHTTP(rr, httptest.NewRequest(method, "http://example.com"+target, nil))
	return rr
}

func TestStaticFilesPrefixHandling(t *testing.T) {
	publicDir := t.TempDir()
	writeFile(t, publicDir, "app.js", "ok")
	s := newStaticFiles(publicDir, "/static", false)

	if rr := serveStatic(s, http.MethodGet, "/static/app.js"); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("GET /static/app.js = %d %q", rr.Code, rr.Body.String())
	}
	if rr := serveStatic(s, http.MethodGet, "/app.js"); rr.Code != http.StatusTeapot {
		t.Fatalf("GET /app.js should fall through, got %d", rr.Code)
	}
}

func TestStaticFilesMethods(t *testing.T) {
	publicDir := t.TempDir()
	writeFile(t, publicDir, "app.js", "ok")
	s := newStaticFiles(publicDir, "/", false)

	if rr := serveStatic(s, http.MethodHead, "/app.js"); rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Fatalf("HEAD /app.js = %d, body %d bytes", rr.Code, rr.Body.Len())
	}
	// Non-GET requests belong to routes (actions, API handlers).
	if rr := serveStatic(s, http.MethodPost, "/app.js"); rr.Code != http.StatusTeapot {
		t.Fatalf("POST /app.js should fall through, got %d", rr.Code)
	}
	// Directories are not files.
	if err := os.MkdirAll(filepath.Join(publicDir, "users"), 0o755); err != nil {
		t.Fatal(err)
	}
	if rr := serveStatic(s, http.MethodGet, "/users"); rr.Code != http.StatusTeapot {
		t.Fatalf("GET /users should fall through, got %d", rr.Code)
	}
}

func TestStaticFilesCacheControl(t *testing.T) {
	publicDir := t.TempDir()
	writeFile(t, publicDir, "app.1a2b3c4d.css", "body{}")
	writeFile(t, publicDir, "robots.txt", "User-agent: *")

	tests := []struct {
		name       string
		production bool
		target     string
		want       string
	}{
		{"dev", false, "/app.1a2b3c4d.css", "no-store, no-cache, must-revalidate"},
		{"fingerprinted", true, "/app.1a2b3c4d.css", "public, max-age=31536000, immutable"},
		{"plain", true, "/robots.txt", "public, max-age=3600, must-revalidate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveStatic(newStaticFiles(publicDir, "/", tt.production), http.MethodGet, tt.target)
			if got := rr.Header().Get("Cache-Control"); got != tt.want {
				t.Fatalf("Cache-Control = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsFingerprinted(t *testing.T) {
	tests := map[string]bool{
		"app.1a2b3c4d.css":        true,
		"assets/app.ABCDEF12.js":  true,
		"app.css":                 false,
		"app.min.css":             false,
		"app.1a2b.css":            false,
		"vendor.zzzzzzzzzz.js":    false,
	}
	for in, want := range tests {
		if got := isFingerprinted(in); got != want {
			t.Errorf("isFingerprinted(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStaticFilesRelPathRejectsUnsafePaths(t *testing.T) {
	s := newStaticFiles(t.TempDir(), "/", false)
	for _, p := range []string{
		"/../secret.txt",
		"/a/../../secret.txt",
		"/./app.js",
		"//etc/passwd",
		"/a\\b",
		"/a\x00b",
		"/",
	} {
		if rel, ok := s.relPath(p); ok {
			t.Errorf("relPath(%q) = %q, want rejection", p, rel)
		}
	}
}

func TestStaticFilesBlocksTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	publicDir := filepath.Join(tmpDir, "public")
	writeFile(t, publicDir, "ok.txt", "ok")
	writeFile(t, tmpDir, "secret.txt", "secret")
	s := newStaticFiles(publicDir, "/", true)

	if rr := serveStatic(s, http.MethodGet, "/ok.txt"); rr.Body.String() != "ok" {
		t.Fatalf("GET /ok.txt body = %q", rr.Body.String())
	}
	for _, p := range []string{"/../secret.txt", "/%2e%2e/secret.txt", "/..//secret.txt"} {
		rr := serveStatic(s, http.MethodGet, p)
		if strings.Contains(rr.Body.String(), "secret") {
			t.Fatalf("GET %s served secret content", p)
		}
	}
}
