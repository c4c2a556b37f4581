package transition

import (
	"context"
	"html"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
)

// owner is a place that can declare boundaries. depth is the number of
// layouts that wrap a boundary declared there.
type owner struct {
	b     Boundaries
	depth int
}

// owners lists boundary owners in search order: module, layouts innermost
// to outermost, root.
func owners(m *Module, layouts []*Layout, root Boundaries) []owner {
	out := make([]owner, 0, len(layouts)+2)
	if m != nil {
		out = append(out, owner{b: m.Boundaries, depth: len(layouts)})
	}
	for i := len(layouts) - 1; i >= 0; i-- {
		out = append(out, owner{b: layouts[i].Boundaries, depth: i})
	}
	return append(out, owner{b: root, depth: 0})
}

// find returns the first owner declaring the capability selected by pick.
func find(list []owner, pick func(Boundaries) Component) (Component, int, bool) {
	for _, o := range list {
		if c := pick(o.b); c != nil {
			return c, o.depth, true
		}
	}
	return nil, 0, false
}

func pickError(b Boundaries) Component    { return b.ErrorBoundary }
func pickCatch(b Boundaries) Component    { return b.CatchBoundary }
func pickNotFound(b Boundaries) Component { return b.NotFound }

// fallbackView renders a minimal status page when no boundary is declared.
func fallbackView(p Props) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		status := http.StatusNotFound
		msg := http.StatusText(status)
		if p.Error != nil {
			if p.Error.Status != 0 {
				status = p.Error.Status
			}
			if p.Error.Message != "" {
				msg = p.Error.Message
			}
		}
		_, err := io.WriteString(w, "<h1>"+strconv.Itoa(status)+"</h1><p>"+html.EscapeString(msg)+"</p>")
		return err
	})
}

// wrap nests view inside layouts, outermost first.
func wrap(view templ.Component, p Props, layouts []*Layout) templ.Component {
	for i := len(layouts) - 1; i >= 0; i-- {
		if layouts[i].Layout != nil {
			view = layouts[i].Layout(p, view)
		}
	}
	return view
}
