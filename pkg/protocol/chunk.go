package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vango-dev/transit/pkg/deferred"
)

// ContentType is the media type of a transition response.
const ContentType = "application/x-ndjson"

// ChunkType discriminates chunks.
type ChunkType string

const (
	TypeInitial  ChunkType = "initial"
	TypeRedirect ChunkType = "redirect"
	TypeDocument ChunkType = "document"
	TypeDeferred ChunkType = "deferred"
)

// Lead reports whether t may open a stream.
func (t ChunkType) Lead() bool {
	return t == TypeInitial || t == TypeRedirect || t == TypeDocument
}

// Kind is what an initial chunk rendered.
type Kind string

const (
	KindPage     Kind = "page"
	KindCatch    Kind = "catch"
	KindError    Kind = "error"
	KindNotFound Kind = "not_found"
)

// ErrMalformedChunk is returned for a line that is not a valid chunk.
var ErrMalformedChunk = errors.New("protocol: malformed chunk")

// PayloadError describes the error a boundary rendered.
type PayloadError struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RenderPayload is everything needed to reproduce a render. It is embedded
// in the document for hydration and sent in initial chunks.
type RenderPayload struct {
	RouteID string            `json:"routeId"`
	Data    any               `json:"data"`
	Params  map[string]string `json:"params"`
	URL     string            `json:"url"`
	Error   *PayloadError     `json:"error,omitempty"`
}

// Chunk is one line of a transition stream. Which fields are meaningful
// depends on Type.
type Chunk struct {
	Type ChunkType

	// initial
	Kind       Kind
	Payload    *RenderPayload
	Head       string
	Redirected bool

	// initial, redirect, document
	Status int

	// redirect, document
	Location string

	// deferred
	ID    string
	OK    bool
	Value any
	Error string
}

// Initial returns an initial chunk.
func Initial(kind Kind, status int, payload *RenderPayload, head string) Chunk {
	return Chunk{Type: TypeInitial, Kind: kind, Status: status, Payload: payload, Head: head}
}

// Redirect returns a redirect chunk.
func Redirect(location string, status int) Chunk {
	return Chunk{Type: TypeRedirect, Location: location, Status: status}
}

// Document returns a document chunk telling the client to load location
// with a full navigation.
func Document(location string, status int) Chunk {
	return Chunk{Type: TypeDocument, Location: location, Status: status}
}

// Deferred returns the chunk for a settled deferred value.
func Deferred(r deferred.Result) Chunk {
	return Chunk{Type: TypeDeferred, ID: r.ID, OK: r.OK, Value: r.Value, Error: r.Error}
}

// Result converts a deferred chunk back to a deferred.Result.
func (c Chunk) Result() deferred.Result {
	return deferred.Result{ID: c.ID, OK: c.OK, Value: c.Value, Error: c.Error}
}

type initialWire struct {
	Type       ChunkType      `json:"type"`
	Kind       Kind           `json:"kind"`
	Status     int            `json:"status"`
	Payload    *RenderPayload `json:"payload"`
	Head       string         `json:"head"`
	Redirected bool           `json:"redirected,omitempty"`
}

type locationWire struct {
	Type     ChunkType `json:"type"`
	Location string    `json:"location"`
	Status   int       `json:"status"`
}

type deferredWire struct {
	Type  ChunkType `json:"type"`
	ID    string    `json:"id"`
	OK    bool      `json:"ok"`
	Value any       `json:"value,omitempty"`
	Error string    `json:"error,omitempty"`
}

// MarshalJSON encodes only the fields of c's type.
func (c Chunk) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case TypeInitial:
		return marshal(initialWire{c.Type, c.Kind, c.Status, c.Payload, c.Head, c.Redirected})
	case TypeRedirect, TypeDocument:
		return marshal(locationWire{c.Type, c.Location, c.Status})
	case TypeDeferred:
		return marshal(deferredWire{c.Type, c.ID, c.OK, c.Value, c.Error})
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedChunk, c.Type)
}

// marshal encodes v without HTML escaping. Stream lines are parsed as JSON,
// never embedded in markup.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type anyWire struct {
	Type       ChunkType      `json:"type"`
	Kind       Kind           `json:"kind"`
	Status     int            `json:"status"`
	Payload    *RenderPayload `json:"payload"`
	Head       string         `json:"head"`
	Redirected bool           `json:"redirected"`
	Location   *string        `json:"location"`
	ID         *string        `json:"id"`
	OK         *bool          `json:"ok"`
	Value      any            `json:"value"`
	Error      string         `json:"error"`
}

// UnmarshalJSON decodes and validates a chunk.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	var w anyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedChunk, err)
	}
	switch w.Type {
	case TypeInitial:
		switch w.Kind {
		case KindPage, KindCatch, KindError, KindNotFound:
		default:
			return fmt.Errorf("%w: initial chunk has kind %q", ErrMalformedChunk, w.Kind)
		}
		if w.Payload == nil {
			return fmt.Errorf("%w: initial chunk without payload", ErrMalformedChunk)
		}
		*c = Chunk{Type: w.Type, Kind: w.Kind, Status: w.Status, Payload: w.Payload, Head: w.Head, Redirected: w.Redirected}
	case TypeRedirect, TypeDocument:
		if w.Location == nil || *w.Location == "" {
			return fmt.Errorf("%w: %s chunk without location", ErrMalformedChunk, w.Type)
		}
		*c = Chunk{Type: w.Type, Location: *w.Location, Status: w.Status}
	case TypeDeferred:
		if w.ID == nil || w.OK == nil {
			return fmt.Errorf("%w: deferred chunk without id or ok", ErrMalformedChunk)
		}
		*c = Chunk{Type: w.Type, ID: *w.ID, OK: *w.OK, Value: w.Value, Error: w.Error}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedChunk, w.Type)
	}
	return nil
}
