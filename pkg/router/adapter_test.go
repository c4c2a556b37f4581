package router

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	terrors "github.com/vango-dev/transit/internal/errors"
)

func TestProjectPattern(t *testing.T) {
	tests := []struct {
		segs []Segment
		want string
	}{
		{nil, "/"},
		{[]Segment{seg(SegmentStatic, "users"), seg(SegmentDynamic, "id")}, "/users/{p1}"},
		{[]Segment{seg(SegmentDynamic, "team"), seg(SegmentStatic, "x"), seg(SegmentDynamic, "id")}, "/{p0}/x/{p2}"},
		{[]Segment{seg(SegmentStatic, "docs"), seg(SegmentCatchAll, "slug")}, "/docs/*"},
		{[]Segment{seg(SegmentStatic, "my tag")}, "/my%20tag"},
	}
	for _, tt := range tests {
		if got := ProjectPattern(tt.segs); got != tt.want {
			t.Errorf("ProjectPattern(%v) = %q, want %q", tt.segs, got, tt.want)
		}
	}
}

func TestAdapterCollision(t *testing.T) {
	root := writeTree(t, "users/[id].go", "users/[slug].go")
	m, err := NewScanner(root, "gen").Scan()
	if err != nil {
		t.Fatalf("scan should accept distinct param names: %v", err)
	}

	_, err = NewAdapter(m.Pages)
	if !terrors.HasCode(err, "E204") {
		t.Fatalf("err = %v, want E204", err)
	}
	for _, f := range []string{"users/[id].go", "users/[slug].go"} {
		if !strings.Contains(err.Error(), f) {
			t.Errorf("error %q does not name %s", err, f)
		}
	}
}

func TestAdapterCatchAllRenameCollision(t *testing.T) {
	defs := manifestOf("/docs/*a", "/docs/*b")
	if _, err := NewAdapter(defs); !terrors.HasCode(err, "E204") {
		t.Fatalf("err = %v, want E204", err)
	}
}

func TestAdapterResolve(t *testing.T) {
	a, err := NewAdapter(manifestOf("/", "/users/new", "/users/:id", "/docs/*slug", "/tags/my tag"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 5 {
		t.Errorf("Len() = %d", a.Len())
	}

	tests := []struct {
		path   string
		route  string
		params map[string]string
	}{
		{"/", "/", map[string]string{}},
		{"/users/new", "/users/new", map[string]string{}},
		{"/users/42", "/users/:id", map[string]string{"id": "42"}},
		{"/users/a%2Fb", "/users/:id", map[string]string{"id": "a/b"}},
		{"/docs/a/b/c", "/docs/*slug", map[string]string{"slug": "a/b/c"}},
		{"/tags/my%20tag", "/tags/my tag", map[string]string{}},
	}
	for _, tt := range tests {
		def, params, ok := a.Resolve(tt.path)
		if !ok {
			t.Errorf("Resolve(%q) missed", tt.path)
			continue
		}
		if def.RoutePath != tt.route {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, def.RoutePath, tt.route)
		}
		if !reflect.DeepEqual(params, tt.params) {
			t.Errorf("Resolve(%q) params = %v, want %v", tt.path, params, tt.params)
		}
	}

	for _, miss := range []string{"/nope", "/docs", "/users/1/2", "/users/%zz"} {
		if _, _, ok := a.Resolve(miss); ok {
			t.Errorf("Resolve(%q) should miss", miss)
		}
	}
}

// TestMatcherParity checks that the native adapter, the pure matcher over
// the server manifest, and the pure matcher over a JSON-shipped client
// snapshot agree on route id and params for generated paths.
func TestMatcherParity(t *testing.T) {
	root := writeTree(t,
		"index.go",
		"users/new.go",
		"users/[id].go",
		"users/[id]/edit.go",
		"users/[id]/posts/[post].go",
		"docs/[...slug].go",
		"docs/intro.md",
		"[team]/settings.go",
		"[org]/[repo].go",
		"[...all].go",
	)
	m, err := NewScanner(root, "gen").Scan()
	if err != nil {
		t.Fatal(err)
	}
	adapter, err := NewAdapter(m.Pages)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(Snapshot{Pages: m.ClientRoutes()})
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}

	properties := gopter.NewProperties(nil)
	properties.Property("adapter, server and client matchers agree", prop.ForAll(
		func(parts []string) bool {
			path := "/" + strings.Join(parts, "/")

			server := Match(m.Pages, path)
			client := Match(snap.Pages, path)
			native, nativeParams, ok := adapter.Resolve(path)

			if server == nil || client == nil || !ok {
				return server == nil && client == nil && !ok
			}
			return server.Route.ID == client.Route.ID &&
				server.Route.ID == native.ID &&
				reflect.DeepEqual(server.Params, client.Params) &&
				reflect.DeepEqual(server.Params, nativeParams)
		},
		gen.SliceOf(gen.OneConstOf(
			"users", "new", "edit", "posts", "docs", "intro", "settings",
			"42", "a%20b", "x%2Fy", "team-1",
		), reflect.TypeOf("")),
	))
	properties.TestingRun(t)
}
