// Package render writes the HTML document for a full page load.
//
// The document carries everything the client runtime needs to take over
// without another request:
//
//   - the managed head region, delimited by the HeadStart and HeadEnd
//     comment markers, which soft navigations reconcile
//   - the rendered view tree inside the element with id RootID
//   - the hydration payload as a JSON script blob (PayloadScriptID)
//   - the client route snapshot as a JSON script blob (SnapshotScriptID)
//
// Views are templ components; this package only drives them as
// render-to-writer black boxes.
//
// # Streaming
//
// StreamingRenderer flushes the shell before any deferred value settles,
// then appends one resolution script per settled value:
//
//	sr := render.NewStreamingRenderer(w, render.RendererConfig{})
//	err := sr.RenderPage(ctx, page, deferred.Drain(ctx, prepared.Settle))
//
// # Security
//
// Attribute values are escaped. JSON placed inside script elements is
// encoded with HTML escaping so a value can never close the element.
package render
