package transition

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/vango-dev/transit/pkg/deferred"
	"github.com/vango-dev/transit/pkg/router"
)

type apiError struct {
	Error string `json:"error"`
	Data  any    `json:"data,omitempty"`
}

// serveAPI runs an API route through the same middleware chain as pages
// and writes the result as JSON.
func (h *Handler) serveAPI(w http.ResponseWriter, r *http.Request, def *router.RouteDefinition, params map[string]string) {
	logger := LoggerFrom(r.Context(), h.logger)
	rc := newRequestContext(r, def, params, r.URL.RequestURI(), logger)

	module, ok := h.registry.apiModule(def.FilePath)
	if !ok {
		logger.Error("api module not registered", "file", def.FilePath)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: sanitizedMessage})
		return
	}
	fn := module.Handlers[r.Method]
	if fn == nil && r.Method == http.MethodHead {
		fn = module.Handlers[http.MethodGet]
	}
	if fn == nil {
		w.Header().Set("Allow", allowed(module))
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: http.StatusText(http.StatusMethodNotAllowed)})
		return
	}

	chain := h.registry.chain(def.MiddlewareFiles, module.Middleware)
	result, err := h.invoke(rc, chain, func() (any, error) { return fn(rc) })
	copyHeader(w, rc.header)

	if err != nil {
		var caught *CaughtError
		if errors.As(err, &caught) {
			msg := caught.Message
			if msg == "" {
				msg = http.StatusText(caught.Status)
			}
			writeJSON(w, caught.Status, apiError{Error: msg, Data: caught.Data})
			return
		}
		logger.Error("api error", "route", def.RoutePath, "error", err)
		msg := err.Error()
		if h.config.Production {
			msg = sanitizedMessage
		}
		writeJSON(w, http.StatusInternalServerError, apiError{Error: msg})
		return
	}

	switch v := result.(type) {
	case *Redirect:
		http.Redirect(w, r, v.Location, v.status())
	case *Response:
		v.write(w)
	case *deferred.Data:
		writeJSON(w, http.StatusOK, settleAll(r, def.ID, v))
	case nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

// settleAll waits for every deferred value; API clients get plain JSON.
func settleAll(r *http.Request, routeID string, d *deferred.Data) map[string]any {
	p := deferred.Prepare(routeID, d)
	out := p.Wire
	prefix := routeID + ":"
	for res := range deferred.Drain(r.Context(), p.Settle) {
		key := strings.TrimPrefix(res.ID, prefix)
		if res.OK {
			out[key] = res.Value
		} else {
			out[key] = apiError{Error: res.Error}
		}
	}
	return out
}

func allowed(m *APIModule) string {
	methods := make([]string, 0, len(m.Handlers))
	for k := range m.Handlers {
		methods = append(methods, k)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
