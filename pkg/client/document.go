package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/transit/pkg/deferred"
	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/render"
	"github.com/vango-dev/transit/pkg/router"
)

// Document is what the runtime reads out of a server-rendered page.
type Document struct {
	Root     *html.Node
	Head     *html.Node
	Payload  *protocol.RenderPayload
	Snapshot *router.Snapshot

	// Resolved are the deferred values the server streamed into the page.
	Resolved []deferred.Result
}

// ParseDocument parses a full document and decodes its hydration payload,
// route snapshot and resolution scripts.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	doc := &Document{Root: root}

	prefix := render.ResolveFunc + "("
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Head:
				if doc.Head == nil {
					doc.Head = n
				}
			case atom.Script:
				body := strings.TrimSpace(textContent(n))
				switch attr(n, "id") {
				case render.PayloadScriptID:
					doc.Payload = &protocol.RenderPayload{}
					if err := json.Unmarshal([]byte(body), doc.Payload); err != nil {
						return fmt.Errorf("decode payload: %w", err)
					}
				case render.SnapshotScriptID:
					doc.Snapshot = &router.Snapshot{}
					if err := json.Unmarshal([]byte(body), doc.Snapshot); err != nil {
						return fmt.Errorf("decode route snapshot: %w", err)
					}
				default:
					if strings.HasPrefix(body, prefix) && strings.HasSuffix(body, ")") {
						var res deferred.Result
						if err := json.Unmarshal([]byte(body[len(prefix):len(body)-1]), &res); err != nil {
							return fmt.Errorf("decode deferred resolution: %w", err)
						}
						doc.Resolved = append(doc.Resolved, res)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	if doc.Payload == nil {
		return nil, fmt.Errorf("parse document: no %s script", render.PayloadScriptID)
	}
	return doc, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// StaticHead is a HeadHost over a parsed head element for headless use.
// Stylesheets are treated as loaded immediately.
type StaticHead struct {
	Node *html.Node
}

// Head implements HeadHost.
func (h StaticHead) Head() *html.Node { return h.Node }

// AwaitStylesheet implements HeadHost.
func (h StaticHead) AwaitStylesheet(ctx context.Context, href string) error { return ctx.Err() }
