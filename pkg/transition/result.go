package transition

import (
	"fmt"
	"net/http"
)

// Response is a raw HTTP response returned by a loader, action or
// middleware. It bypasses rendering; in a transition it becomes a document
// chunk unless its status is a redirect.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Redirect asks for a redirect instead of a render.
type Redirect struct {
	Location string

	// Status defaults to 302 Found.
	Status int
}

// RedirectTo returns a 302 redirect to location.
func RedirectTo(location string) *Redirect {
	return &Redirect{Location: location, Status: http.StatusFound}
}

func (r *Redirect) status() int {
	if r.Status == 0 {
		return http.StatusFound
	}
	return r.Status
}

// CaughtError is an expected failure with a status and data for a
// CatchBoundary.
type CaughtError struct {
	Status  int
	Message string
	Data    any
}

func (e *CaughtError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// Catch returns a caught error with status and data.
func Catch(status int, data any) *CaughtError {
	return &CaughtError{Status: status, Data: data}
}

// NotFoundError returns a caught 404.
func NotFoundError(data any) *CaughtError {
	return Catch(http.StatusNotFound, data)
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// asRedirect reports whether resp is a redirect in disguise.
func (r *Response) asRedirect() (*Redirect, bool) {
	if !isRedirectStatus(r.Status) {
		return nil, false
	}
	loc := r.Header.Get("Location")
	if loc == "" {
		return nil, false
	}
	return &Redirect{Location: loc, Status: r.Status}, true
}

func (r *Response) write(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(r.Body)
}
