package router

import (
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	terrors "github.com/vango-dev/transit/internal/errors"
)

// Source kinds recognized in the routes directory.
const (
	nativeExt   = ".go"
	markdownExt = ".md"
)

// unsupportedExts are compiled source kinds that look like routes but cannot
// be compiled. They fail the scan instead of being skipped.
var unsupportedExts = map[string]string{
	".mdx":      "MDX routes are not supported; use .md",
	".markdown": "rename the file to .md",
}

var paramNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Scanner scans a directory for route files.
type Scanner struct {
	rootDir string
	genDir  string
}

// NewScanner creates a new route scanner. genDir is where compiled
// non-native route sources (markdown) are written by the build.
func NewScanner(rootDir, genDir string) *Scanner {
	return &Scanner{rootDir: rootDir, genDir: genDir}
}

// scannedFile is a route source before layout/middleware resolution.
type scannedFile struct {
	rel  string // slash-separated, relative to rootDir
	dir  string // slash-separated directory, "" for root
	name string // basename without extension
	ext  string
}

// Scan reads all route files and returns the ranked manifest.
// Structural problems fail the whole scan.
func (s *Scanner) Scan() (*Manifest, error) {
	var files []scannedFile
	layouts := make(map[string]string)
	middleware := make(map[string]string)

	err := filepath.WalkDir(s.rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.rootDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		base := d.Name()
		if isHidden(base) && !isSpecial(base) {
			return nil
		}
		if strings.HasSuffix(base, "_test.go") {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(base))
		if hint, bad := unsupportedExts[ext]; bad {
			return terrors.New("E201").WithFiles(rel).WithSuggestion(hint)
		}
		if ext != nativeExt && ext != markdownExt {
			return nil
		}

		dir := path.Dir(rel)
		if dir == "." {
			dir = ""
		}
		f := scannedFile{rel: rel, dir: dir, name: strings.TrimSuffix(base, filepath.Ext(base)), ext: ext}

		if ext == nativeExt {
			switch f.name {
			case "layout", "_layout":
				layouts[dir] = rel
				return nil
			case "middleware", "_middleware":
				middleware[dir] = rel
				return nil
			}
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	for _, f := range files {
		def, err := s.buildRoute(f, layouts, middleware)
		if err != nil {
			return nil, err
		}
		if def.Kind == RouteAPI {
			m.API = append(m.API, def)
		} else {
			m.Pages = append(m.Pages, def)
		}
	}

	if err := validateDuplicates(m.Pages); err != nil {
		return nil, err
	}
	if err := validateDuplicates(m.API); err != nil {
		return nil, err
	}
	SortBySpecificity(m.Pages)
	SortBySpecificity(m.API)
	return m, nil
}

// buildRoute converts a scanned file into a RouteDefinition.
func (s *Scanner) buildRoute(f scannedFile, layouts, middleware map[string]string) (RouteDefinition, error) {
	var parts []string
	if f.dir != "" {
		parts = strings.Split(f.dir, "/")
	}
	if f.name != "index" {
		parts = append(parts, f.name)
	}

	var segs []Segment
	seen := make(map[string]bool)
	for i, part := range parts {
		if isGroup(part) {
			if i == len(parts)-1 && f.name != "index" {
				return RouteDefinition{}, terrors.New("E205").
					WithFiles(f.rel).
					WithDetail("a grouping name cannot be used as a file name")
			}
			continue
		}
		seg, err := parseSegment(part)
		if err != nil {
			return RouteDefinition{}, terrors.New("E205").WithFiles(f.rel).WithDetail(err.Error())
		}
		if seg.Kind != SegmentStatic {
			if seen[seg.Value] {
				return RouteDefinition{}, terrors.New("E205").
					WithFiles(f.rel).
					WithDetail("parameter " + seg.Value + " is declared twice")
			}
			seen[seg.Value] = true
		}
		segs = append(segs, seg)
	}
	for i, seg := range segs {
		if seg.Kind == SegmentCatchAll && i != len(segs)-1 {
			return RouteDefinition{}, terrors.New("E203").WithFiles(f.rel)
		}
	}

	def := RouteDefinition{
		ID:        RouteID(f.rel),
		Kind:      RoutePage,
		FilePath:  f.rel,
		RoutePath: FormatPattern(segs),
		Segments:  segs,
		Score:     Score(segs),
		Directory: f.dir,
	}
	if len(segs) > 0 && segs[0].Kind == SegmentStatic && segs[0].Value == "api" {
		def.Kind = RouteAPI
	}
	if f.ext == markdownExt {
		def.GeneratedPath = filepath.ToSlash(filepath.Join(s.genDir, f.rel+nativeExt))
	}

	for _, dir := range ancestors(f.dir) {
		if def.Kind == RoutePage {
			if l, ok := layouts[dir]; ok {
				def.LayoutFiles = append(def.LayoutFiles, l)
			}
		}
		if mw, ok := middleware[dir]; ok {
			def.MiddlewareFiles = append(def.MiddlewareFiles, mw)
		}
	}
	return def, nil
}

// parseSegment converts one path element into a Segment.
func parseSegment(part string) (Segment, error) {
	if strings.HasPrefix(part, "[") || strings.HasSuffix(part, "]") {
		if !strings.HasPrefix(part, "[") || !strings.HasSuffix(part, "]") {
			return Segment{}, segmentError(part, "unbalanced brackets")
		}
		inner := part[1 : len(part)-1]
		kind := SegmentDynamic
		if strings.HasPrefix(inner, "...") {
			kind = SegmentCatchAll
			inner = inner[3:]
		}
		if !paramNameRe.MatchString(inner) {
			return Segment{}, segmentError(part, "invalid parameter name")
		}
		return Segment{Kind: kind, Value: inner}, nil
	}
	if strings.ContainsAny(part, "{}*[]") {
		return Segment{}, segmentError(part, "reserved character in static segment")
	}
	return Segment{Kind: SegmentStatic, Value: part}, nil
}

type segError struct{ part, reason string }

func (e segError) Error() string { return e.reason + ": " + e.part }

func segmentError(part, reason string) error { return segError{part: part, reason: reason} }

// FormatPattern renders segments as a route path ("/users/:id", "/docs/*slug").
func FormatPattern(segs []Segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		switch s.Kind {
		case SegmentDynamic:
			b.WriteByte(':')
		case SegmentCatchAll:
			b.WriteByte('*')
		}
		b.WriteString(s.Value)
	}
	return b.String()
}

// ancestors lists dir and its parents, root ("") first.
func ancestors(dir string) []string {
	out := []string{""}
	if dir == "" {
		return out
	}
	parts := strings.Split(dir, "/")
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}

func isGroup(part string) bool {
	return len(part) > 2 && strings.HasPrefix(part, "(") && strings.HasSuffix(part, ")")
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

func isSpecial(base string) bool {
	switch base {
	case "_layout.go", "_middleware.go":
		return true
	}
	return false
}
