package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/transit/pkg/render"
)

// ReconcileHead patches the managed region of head, between the
// render.HeadStart and render.HeadEnd comments, so that it holds desired.
//
// Nodes are compared by signature. A node that already sits at its desired
// position is not touched; one found elsewhere in the region is moved; the
// rest are created from desired. Leftovers are removed. Stylesheet links are
// keyed by absolute href: an existing link for the same href stays where it
// is and is only awaited. ReconcileHead returns once every desired
// stylesheet has loaded or failed, or when ctx is done.
func ReconcileHead(ctx context.Context, host HeadHost, base *url.URL, desired string) error {
	head := host.Head()
	if head == nil {
		return ErrNoHeadMarkers
	}
	start, end := headMarkers(head)
	if start == nil || end == nil {
		return ErrNoHeadMarkers
	}

	want, err := html.ParseFragment(strings.NewReader(desired), &html.Node{
		Type:     html.ElementNode,
		Data:     "head",
		DataAtom: atom.Head,
	})
	if err != nil {
		return fmt.Errorf("parse head: %w", err)
	}

	var existing []*html.Node
	sheets := make(map[string]*html.Node)
	for n := start.NextSibling; n != nil && n != end; n = n.NextSibling {
		if href, ok := stylesheetHref(n, base); ok {
			if _, dup := sheets[href]; !dup {
				sheets[href] = n
				continue
			}
		}
		existing = append(existing, n)
	}

	pool := make(map[string][]*html.Node)
	for _, n := range existing {
		sig := signature(n)
		pool[sig] = append(pool[sig], n)
	}
	used := make(map[*html.Node]bool)
	take := func(sig string) *html.Node {
		for len(pool[sig]) > 0 {
			n := pool[sig][0]
			pool[sig] = pool[sig][1:]
			if !used[n] {
				return n
			}
		}
		return nil
	}

	var (
		order  []*html.Node
		fixed  = make(map[*html.Node]bool)
		await  []string
		hrefs  = make(map[string]bool)
		region = 0
	)
	for _, d := range want {
		if href, ok := stylesheetHref(d, base); ok {
			if hrefs[href] {
				continue
			}
			hrefs[href] = true
			await = append(await, href)
			if n, ok := sheets[href]; ok {
				fixed[n] = true
				used[n] = true
				order = append(order, n)
				continue
			}
			used[d] = true
			order = append(order, d)
			continue
		}

		sig := signature(d)
		var n *html.Node
		if region < len(existing) && !used[existing[region]] && signature(existing[region]) == sig {
			n = existing[region]
		} else if n = take(sig); n == nil {
			n = d
		}
		region++
		used[n] = true
		order = append(order, n)
	}

	cur := start
	for _, n := range order {
		if fixed[n] {
			continue
		}
		for cur.NextSibling != end && fixed[cur.NextSibling] {
			cur = cur.NextSibling
		}
		if cur.NextSibling != n {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
			head.InsertBefore(n, cur.NextSibling)
		}
		cur = n
	}

	for n := start.NextSibling; n != nil && n != end; {
		next := n.NextSibling
		if !used[n] {
			head.RemoveChild(n)
		}
		n = next
	}

	for _, href := range await {
		// A failed stylesheet still completes the swap.
		_ = host.AwaitStylesheet(ctx, href)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func headMarkers(head *html.Node) (start, end *html.Node) {
	for n := head.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != html.CommentNode {
			continue
		}
		switch strings.TrimSpace(n.Data) {
		case render.HeadStart:
			start = n
		case render.HeadEnd:
			if start != nil {
				return start, n
			}
		}
	}
	return start, nil
}

// signature identifies a node by content: tag, sorted attributes and inner
// markup for elements, raw data for everything else.
func signature(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		var b strings.Builder
		b.WriteString("<")
		b.WriteString(n.Data)
		attrs := make([]string, 0, len(n.Attr))
		for _, a := range n.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + key
			}
			attrs = append(attrs, key+"="+fmt.Sprintf("%q", a.Val))
		}
		sort.Strings(attrs)
		for _, a := range attrs {
			b.WriteString(" ")
			b.WriteString(a)
		}
		b.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			_ = html.Render(&b, c)
		}
		return b.String()
	case html.CommentNode:
		return "<!--" + n.Data
	default:
		return "#" + n.Data
	}
}

// stylesheetHref returns the absolute href of a <link rel="stylesheet">.
func stylesheetHref(n *html.Node, base *url.URL) (string, bool) {
	if n.Type != html.ElementNode || n.DataAtom != atom.Link {
		return "", false
	}
	var rel, href string
	for _, a := range n.Attr {
		switch a.Key {
		case "rel":
			rel = a.Val
		case "href":
			href = a.Val
		}
	}
	if href == "" || !hasToken(rel, "stylesheet") {
		return "", false
	}
	return absolute(base, href), true
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func absolute(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// headTitle returns the text of the first <title> in markup.
func headTitle(markup string) string {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "head",
		DataAtom: atom.Head,
	})
	if err != nil {
		return ""
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			return strings.TrimSpace(textContent(n))
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
