package render

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/router"
)

// Document markers and element ids shared with the client runtime.
const (
	HeadStart        = "transit-head-start"
	HeadEnd          = "transit-head-end"
	RootID           = "transit-root"
	PayloadScriptID  = "transit-payload"
	SnapshotScriptID = "transit-routes"
)

// DefaultClientScript is the runtime bundle path used when none is set.
const DefaultClientScript = "/_transit/client.js"

// RendererConfig configures document output.
type RendererConfig struct {
	// Lang is the html lang attribute. Defaults to "en".
	Lang string

	// ClientScript is the runtime bundle. Defaults to DefaultClientScript.
	ClientScript string

	// BodyEnd is trusted markup written after the scripts, such as a dev
	// reload snippet.
	BodyEnd string
}

// PageData is one full document.
type PageData struct {
	// Head is the managed head markup, as produced by ManagedHead.
	Head string

	// Body is the rendered route tree (layouts wrapped around the page or
	// boundary view).
	Body templ.Component

	Payload  *protocol.RenderPayload
	Snapshot *router.Snapshot

	// Scripts are module scripts for the matched route, loaded after the
	// runtime.
	Scripts []string
}

// Renderer writes whole documents without intermediate flushes.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a renderer.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Lang == "" {
		config.Lang = "en"
	}
	if config.ClientScript == "" {
		config.ClientScript = DefaultClientScript
	}
	return &Renderer{config: config}
}

// RenderComponent renders c to a string.
func RenderComponent(ctx context.Context, c templ.Component) (string, error) {
	if c == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ManagedHead builds the markup that goes between the head markers: the
// route's head content followed by its stylesheets. Documents and initial
// chunks use the same string.
func ManagedHead(head string, stylesheets []string) string {
	var buf bytes.Buffer
	buf.WriteString(head)
	for _, href := range stylesheets {
		fmt.Fprintf(&buf, `<link rel="stylesheet" href="%s">`, escapeAttr(href))
	}
	return buf.String()
}

// RenderPage writes a complete document to w.
func (r *Renderer) RenderPage(ctx context.Context, w io.Writer, page PageData) error {
	if err := r.writeShellStart(w, page); err != nil {
		return err
	}
	if err := r.writeBody(ctx, w, page); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

func (r *Renderer) writeShellStart(w io.Writer, page PageData) error {
	if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", escapeAttr(r.config.Lang)); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `<meta charset="utf-8">`+"\n"+`<meta name="viewport" content="width=device-width, initial-scale=1">`+"\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<!--%s-->%s<!--%s-->\n</head>\n<body>\n", HeadStart, page.Head, HeadEnd); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) writeBody(ctx context.Context, w io.Writer, page PageData) error {
	if _, err := fmt.Fprintf(w, `<div id="%s">`, RootID); err != nil {
		return err
	}
	if page.Body != nil {
		if err := page.Body.Render(ctx, w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</div>\n"); err != nil {
		return err
	}

	if err := writeBlob(w, PayloadScriptID, page.Payload); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if page.Snapshot != nil {
		if err := writeBlob(w, SnapshotScriptID, page.Snapshot); err != nil {
			return fmt.Errorf("encode route snapshot: %w", err)
		}
	}

	if _, err := fmt.Fprintf(w, `<script src="%s" defer></script>`+"\n", escapeAttr(r.config.ClientScript)); err != nil {
		return err
	}
	for _, src := range page.Scripts {
		if _, err := fmt.Fprintf(w, `<script type="module" src="%s"></script>`+"\n", escapeAttr(src)); err != nil {
			return err
		}
	}
	if r.config.BodyEnd != "" {
		if _, err := io.WriteString(w, r.config.BodyEnd+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeBlob(w io.Writer, id string, v any) error {
	data, err := scriptJSON(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<script type="application/json" id="%s">`, id); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "</script>\n")
	return err
}
