package transit

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// staticFiles serves the public directory in front of the route handler.
// Requests that do not name an existing file fall through.
type staticFiles struct {
	dir        string
	prefix     string
	fs         http.FileSystem
	production bool
}

func newStaticFiles(dir, prefix string, production bool) *staticFiles {
	s := &staticFiles{dir: dir, prefix: prefix, production: production}
	if dir != "" {
		s.fs = http.Dir(dir)
	}
	return s
}

func (s *staticFiles) wrap(next http.Handler) http.Handler {
	if s.fs == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodGet || r.Method == http.MethodHead) && s.exists(r.URL.Path) {
			s.serve(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// relPath returns a sanitized relative path for a static file request.
// It rejects traversal and absolute-path tricks so that serving cannot
// escape the public directory.
func (s *staticFiles) relPath(urlPath string) (string, bool) {
	rel := s.stripPrefix(urlPath)
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// After prefix stripping, a leading "/" indicates an absolute-path attempt
	// (e.g. "/static//etc/passwd" => "/etc/passwd").
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

func (s *staticFiles) exists(urlPath string) bool {
	rel, ok := s.relPath(urlPath)
	if !ok {
		return false
	}

	f, err := s.fs.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func (s *staticFiles) serve(w http.ResponseWriter, r *http.Request) {
	rel, ok := s.relPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := s.fs.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	s.applyCacheHeaders(w, rel)
	http.ServeContent(w, r, rel, info.ModTime(), f)
}

func (s *staticFiles) stripPrefix(urlPath string) string {
	prefix := s.prefix
	if prefix == "" {
		prefix = "/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if prefix == "/" {
		return strings.TrimPrefix(urlPath, "/")
	}
	if !strings.HasPrefix(urlPath, prefix) {
		return ""
	}
	return strings.TrimPrefix(urlPath, prefix)
}

func (s *staticFiles) applyCacheHeaders(w http.ResponseWriter, filePath string) {
	if !s.production {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		return
	}
	if isFingerprinted(filePath) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}
}

// isFingerprinted reports whether a file name carries a content hash,
// e.g. "app.a1b2c3d4.css".
func isFingerprinted(filePath string) bool {
	parts := strings.Split(path.Base(filePath), ".")
	if len(parts) < 3 {
		return false
	}

	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
