package transition

import (
	"errors"
	"net/http"

	terrors "github.com/vango-dev/transit/internal/errors"
	"github.com/vango-dev/transit/pkg/deferred"
	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/routepath"
)

// RedirectedParam marks a transition request issued while following a
// redirect chunk; the initial chunk echoes it as Redirected.
const RedirectedParam = "redirected"

// serveTransition answers GET {TransitionPath}?to=<target> with an NDJSON
// stream.
func (h *Handler) serveTransition(w http.ResponseWriter, r *http.Request, rt *Routes) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	to := query.Get("to")
	if to == "" {
		h.badTarget(w, r, to, nil)
		return
	}
	cr, err := routepath.ValidateTarget(to)
	if err != nil {
		h.badTarget(w, r, to, err)
		return
	}
	target := cr.Target()

	w.Header().Set("Content-Type", protocol.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	enc := protocol.NewEncoder(w)
	logger := LoggerFrom(r.Context(), h.logger)

	if cr.Changed {
		if err := enc.Encode(protocol.Redirect(target, http.StatusMovedPermanently)); err != nil {
			logger.Debug("transition write failed", "target", target, "error", err)
		}
		return
	}

	o := h.run(targetRequest(r, cr), rt, target)
	copyHeader(w, o.header)

	var lead protocol.Chunk
	switch o.typ {
	case outcomeRedirect:
		lead = protocol.Redirect(o.redirect.Location, o.redirect.status())
	case outcomeRaw, outcomeBareError:
		lead = protocol.Document(target, o.status)
	default:
		lead = protocol.Initial(o.kind, o.status, o.payload(), h.head(r.Context(), o))
		lead.Redirected = query.Get(RedirectedParam) != ""
	}
	if err := enc.Encode(lead); err != nil {
		logger.Debug("transition write failed", "target", target, "error", err)
		return
	}

	if len(o.settle) == 0 {
		return
	}
	for res := range deferred.Drain(r.Context(), o.settle) {
		err := enc.Encode(protocol.Deferred(res))
		var ee *protocol.EncodeError
		if errors.As(err, &ee) {
			logger.Warn("deferred value not encodable", "id", res.ID, "error", ee.Err)
			err = enc.Encode(protocol.Deferred(deferred.Unencodable(res.ID, ee.Err)))
		}
		if err != nil {
			// The client went away; remaining values settle unobserved.
			logger.Debug("deferred write failed", "id", res.ID, "error", err)
			return
		}
	}
}

func (h *Handler) badTarget(w http.ResponseWriter, r *http.Request, to string, cause error) {
	err := terrors.New("E301").WithDetail("to=" + to)
	if cause != nil {
		err = err.Wrap(cause)
	}
	LoggerFrom(r.Context(), h.logger).Debug("bad transition target", "error", err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}
