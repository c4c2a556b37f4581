package client

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vango-dev/transit/pkg/deferred"
	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/render"
	"github.com/vango-dev/transit/pkg/router"
)

func renderedDocument(t *testing.T) []byte {
	t.Helper()
	snap := snapshotOf("index.go", "users/[id].go")
	snap.Assets = map[string]string{"app.css": "/assets/app-1.css"}
	snap.DevVersion = "7"
	id := router.RouteID("users/[id].go")

	var buf bytes.Buffer
	err := render.NewRenderer(render.RendererConfig{}).RenderPage(context.Background(), &buf, render.PageData{
		Head: render.ManagedHead("<title>User 42</title>", []string{"/assets/app-1.css"}),
		Payload: &protocol.RenderPayload{
			RouteID: id,
			URL:     "/users/42",
			Params:  map[string]string{"id": "42"},
			Data: map[string]any{
				"name":  "</script><b>",
				"posts": deferred.Token{DeferredID: id + ":posts"},
			},
		},
		Snapshot: snap,
	})
	require.NoError(t, err)
	require.NoError(t, render.WriteResolveScript(&buf, deferred.Result{ID: id + ":posts", OK: true, Value: []any{"p1"}}))
	return buf.Bytes()
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(bytes.NewReader(renderedDocument(t)))
	require.NoError(t, err)

	id := router.RouteID("users/[id].go")
	require.Equal(t, id, doc.Payload.RouteID)
	require.Equal(t, "/users/42", doc.Payload.URL)
	require.Equal(t, "</script><b>", doc.Payload.Data.(map[string]any)["name"])
	require.Len(t, doc.Snapshot.Pages, 2)
	require.Equal(t, "7", doc.Snapshot.DevVersion)
	require.Equal(t, "/assets/app-1.css", doc.Snapshot.Assets["app.css"])

	require.Len(t, doc.Resolved, 1)
	require.Equal(t, id+":posts", doc.Resolved[0].ID)
	require.True(t, doc.Resolved[0].OK)

	require.NotNil(t, doc.Head)
	require.Equal(t, `<title>User 42</title><link rel="stylesheet" href="/assets/app-1.css"/>`, managed(t, doc.Head))
}

func TestParseDocumentWithoutPayload(t *testing.T) {
	_, err := ParseDocument(strings.NewReader(`<html><body></body></html>`))
	require.Error(t, err)
}

func TestHydrate(t *testing.T) {
	doc, err := ParseDocument(bytes.NewReader(renderedDocument(t)))
	require.NoError(t, err)

	origin, _ := url.Parse("https://app.example")
	root := &fakeRoot{}
	rt, err := New(Options{
		Origin:    origin,
		Root:      root,
		History:   &fakeHistory{},
		Head:      StaticHead{Node: doc.Head},
		Loader:    moduleLoader{},
		Navigator: &fakeNavigator{},
	})
	require.NoError(t, err)
	require.NoError(t, rt.Hydrate(context.Background(), doc))

	require.Equal(t, "/users/42", rt.Current())
	views := root.rendered()
	require.Len(t, views, 1)
	require.Equal(t, doc.Payload.RouteID, views[0].Module.RouteID)

	posts := views[0].Data.(map[string]any)["posts"].(*deferred.Promise)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := posts.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, []any{"p1"}, v)

	m, ok := rt.Modules().Lookup(doc.Payload.RouteID)
	require.True(t, ok)
	require.Same(t, views[0].Module, m)
}

func TestHydrateRejectsUnresolvedTokens(t *testing.T) {
	doc, err := ParseDocument(bytes.NewReader(renderedDocument(t)))
	require.NoError(t, err)
	// The server stopped streaming before posts settled.
	doc.Resolved = nil

	origin, _ := url.Parse("https://app.example")
	root := &fakeRoot{}
	rt, err := New(Options{
		Origin:    origin,
		Root:      root,
		History:   &fakeHistory{},
		Head:      StaticHead{Node: doc.Head},
		Loader:    moduleLoader{},
		Navigator: &fakeNavigator{},
	})
	require.NoError(t, err)
	require.NoError(t, rt.Hydrate(context.Background(), doc))

	posts := root.rendered()[0].Data.(map[string]any)["posts"].(*deferred.Promise)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = posts.Wait(ctx)
	require.ErrorIs(t, err, ErrStreamClosed)
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	origin, _ := url.Parse("https://app.example")
	_, err = New(Options{Origin: origin})
	require.Error(t, err)
}
