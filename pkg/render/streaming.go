package render

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/vango-dev/transit/pkg/deferred"
)

// ResolveFunc is the client global that deferred resolution scripts call.
const ResolveFunc = "__transitResolve"

// StreamingRenderer writes a document in stages, flushing the shell before
// any deferred value is awaited.
type StreamingRenderer struct {
	*Renderer
	flusher http.Flusher
	w       io.Writer
}

// NewStreamingRenderer creates a streaming renderer for w. Flushing is a
// no-op if w does not implement http.Flusher.
func NewStreamingRenderer(w http.ResponseWriter, config RendererConfig) *StreamingRenderer {
	flusher, _ := w.(http.Flusher)
	return &StreamingRenderer{
		Renderer: NewRenderer(config),
		flusher:  flusher,
		w:        w,
	}
}

// RenderPage writes the shell and flushes, then writes one resolution
// script per value received from results until it is closed or ctx ends,
// then closes the document.
func (s *StreamingRenderer) RenderPage(ctx context.Context, page PageData, results <-chan deferred.Result) error {
	if err := s.writeShellStart(s.w, page); err != nil {
		return err
	}
	s.flush()

	if err := s.writeBody(ctx, s.w, page); err != nil {
		return err
	}
	s.flush()

	if results != nil {
	drain:
		for {
			select {
			case r, ok := <-results:
				if !ok {
					break drain
				}
				if err := WriteResolveScript(s.w, r); err != nil {
					return err
				}
				s.flush()
			case <-ctx.Done():
				break drain
			}
		}
	}

	if _, err := io.WriteString(s.w, "</body>\n</html>\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

// WriteResolveScript writes the script that settles one deferred value in
// the browser.
func WriteResolveScript(w io.Writer, r deferred.Result) error {
	data, err := scriptJSON(r)
	if err != nil {
		data, _ = scriptJSON(deferred.Unencodable(r.ID, err))
	}
	_, err = fmt.Fprintf(w, "<script>%s(%s)</script>\n", ResolveFunc, data)
	return err
}

func (s *StreamingRenderer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
