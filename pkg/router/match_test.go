package router

import (
	"reflect"
	"testing"
)

func seg(kind SegmentKind, v string) Segment { return Segment{Kind: kind, Value: v} }

// manifestOf builds ranked definitions from route paths like "/users/:id".
func manifestOf(paths ...string) []RouteDefinition {
	defs := make([]RouteDefinition, 0, len(paths))
	for _, p := range paths {
		var segs []Segment
		for _, part := range splitPattern(p) {
			switch part[0] {
			case ':':
				segs = append(segs, seg(SegmentDynamic, part[1:]))
			case '*':
				segs = append(segs, seg(SegmentCatchAll, part[1:]))
			default:
				segs = append(segs, seg(SegmentStatic, part))
			}
		}
		defs = append(defs, RouteDefinition{
			ID:        RouteID(p + ".go"),
			FilePath:  p + ".go",
			RoutePath: FormatPattern(segs),
			Segments:  segs,
			Score:     Score(segs),
		})
	}
	SortBySpecificity(defs)
	return defs
}

func splitPattern(p string) []string {
	var out []string
	start := 1
	for i := 1; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				out = append(out, p[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func TestMatchRanking(t *testing.T) {
	defs := manifestOf("/users/:id", "/users/new", "/users/*rest")

	res := Match(defs, "/users/new")
	if res == nil || res.Route.RoutePath != "/users/new" {
		t.Fatalf("/users/new matched %+v, want static route", res)
	}
	if len(res.Params) != 0 {
		t.Errorf("static match params = %v", res.Params)
	}

	res = Match(defs, "/users/anything-else")
	if res == nil || res.Route.RoutePath != "/users/:id" {
		t.Fatalf("/users/anything-else matched %+v, want dynamic route", res)
	}
	if res.Params["id"] != "anything-else" {
		t.Errorf("id = %q", res.Params["id"])
	}

	res = Match(defs, "/users/a/b")
	if res == nil || res.Route.RoutePath != "/users/*rest" {
		t.Fatalf("/users/a/b matched %+v, want catch-all", res)
	}
}

func TestMatchCatchAllCapture(t *testing.T) {
	defs := manifestOf("/docs/*slug")

	res := Match(defs, "/docs/a/b/c")
	if res == nil {
		t.Fatal("expected match")
	}
	if res.Params["slug"] != "a/b/c" {
		t.Errorf("slug = %q, want a/b/c", res.Params["slug"])
	}
	if Match(defs, "/docs") != nil {
		t.Error("catch-all must capture at least one segment")
	}
}

func TestMatchDecoding(t *testing.T) {
	defs := manifestOf("/files/:name", "/tags/my tag")

	tests := []struct {
		path   string
		want   string
		params map[string]string
	}{
		{"/files/a%20b", "/files/:name", map[string]string{"name": "a b"}},
		{"/files/a%2Fb", "/files/:name", map[string]string{"name": "a/b"}},
		{"/tags/my%20tag", "/tags/my tag", map[string]string{}},
		{"/files/x?download=1#top", "/files/:name", map[string]string{"name": "x"}},
	}
	for _, tt := range tests {
		res := Match(defs, tt.path)
		if res == nil {
			t.Errorf("Match(%q) = nil", tt.path)
			continue
		}
		if res.Route.RoutePath != tt.want {
			t.Errorf("Match(%q) route = %q, want %q", tt.path, res.Route.RoutePath, tt.want)
		}
		if !reflect.DeepEqual(res.Params, tt.params) {
			t.Errorf("Match(%q) params = %v, want %v", tt.path, res.Params, tt.params)
		}
	}

	if Match(defs, "/files/%zz") != nil {
		t.Error("undecodable segment should not match")
	}
}

func TestMatchRootAndMiss(t *testing.T) {
	defs := manifestOf("/", "/about")
	if res := Match(defs, "/"); res == nil || res.Route.RoutePath != "/" {
		t.Errorf("root matched %+v", res)
	}
	if Match(defs, "/missing") != nil {
		t.Error("expected nil for unmatched path")
	}
	if Match(defs, "/about/extra") != nil {
		t.Error("expected nil when path is longer than pattern")
	}
}

func TestMatchFirstWinsWithoutBacktracking(t *testing.T) {
	// Already ranked; Match must honour the given order.
	defs := []ClientRoute{
		{ID: "b", Segments: []Segment{seg(SegmentDynamic, "x")}},
		{ID: "a", Segments: []Segment{seg(SegmentStatic, "a")}},
	}
	if res := Match(defs, "/a"); res == nil || res.Route.ID != "b" {
		t.Errorf("expected first candidate to win, got %+v", res)
	}
}

func TestScoreOrdering(t *testing.T) {
	static := Score([]Segment{seg(SegmentStatic, "users"), seg(SegmentStatic, "new")})
	dynamic := Score([]Segment{seg(SegmentStatic, "users"), seg(SegmentDynamic, "id")})
	catchAll := Score([]Segment{seg(SegmentStatic, "users"), seg(SegmentCatchAll, "rest")})
	deeperDynamic := Score([]Segment{seg(SegmentStatic, "users"), seg(SegmentDynamic, "id"), seg(SegmentStatic, "edit")})

	if !(static > deeperDynamic && deeperDynamic > dynamic && dynamic > catchAll) {
		t.Errorf("unexpected ordering: static=%d deeper=%d dynamic=%d catchAll=%d", static, deeperDynamic, dynamic, catchAll)
	}
}

func TestSortBySpecificityTieBreak(t *testing.T) {
	defs := manifestOf("/b", "/a", "/c/:id", "/c/:name")
	got := make([]string, len(defs))
	for i, d := range defs {
		got[i] = d.RoutePath
	}
	want := []string{"/c/:id", "/c/:name", "/a", "/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}
