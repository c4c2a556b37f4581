package assets

import (
	"reflect"
	"testing"
)

func testManifest() *Manifest {
	m := NewManifest()
	m.Set("app.css", "app.1111.css")
	m.Set("users.css", "users.2222.css")
	m.Set("users.js", "users.3333.js")
	m.SetStyles("app.css")
	m.SetRoute("users-id", RouteAssets{Scripts: []string{"users.js"}, Styles: []string{"users.css", "app.css"}})
	return m
}

func TestBundleStylesheets(t *testing.T) {
	b := NewBundle(testManifest(), NewResolver(testManifest(), "/assets/"))

	tests := []struct {
		route string
		want  []string
	}{
		{"users-id", []string{"/assets/app.1111.css", "/assets/users.2222.css"}},
		{"other", []string{"/assets/app.1111.css"}},
		{"", []string{"/assets/app.1111.css"}},
	}
	for _, tt := range tests {
		if got := b.Stylesheets(tt.route); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Stylesheets(%q) = %v, want %v", tt.route, got, tt.want)
		}
	}
}

func TestBundleScripts(t *testing.T) {
	m := testManifest()
	b := NewBundle(m, NewResolver(m, "/assets/"))

	if got, want := b.Scripts("users-id"), []string{"/assets/users.3333.js"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Scripts(users-id) = %v, want %v", got, want)
	}
	if got := b.Scripts("other"); got != nil {
		t.Errorf("Scripts(other) = %v, want nil", got)
	}
}

func TestBundleSnapshot(t *testing.T) {
	m := testManifest()
	b := NewBundle(m, NewPassthroughResolver("/dev/"))

	want := map[string]string{
		"app.css":   "/dev/app.css",
		"users.css": "/dev/users.css",
		"users.js":  "/dev/users.js",
	}
	if got := b.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestBundleDefaults(t *testing.T) {
	b := NewBundle(nil, nil)
	if got := b.Stylesheets("x"); got != nil {
		t.Errorf("Stylesheets() = %v, want nil", got)
	}
	if got := b.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() = %v, want empty", got)
	}
}
