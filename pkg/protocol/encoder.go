package protocol

import (
	"encoding/json"
	"errors"
	"io"
)

// ErrChunkOrder is returned when a stream would carry more than one lead
// chunk, or a deferred chunk before the lead.
var ErrChunkOrder = errors.New("protocol: chunk out of order")

// EncodeError reports a chunk that could not be serialized. Nothing was
// written and the stream can continue.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return "protocol: encode chunk: " + e.Err.Error() }

func (e *EncodeError) Unwrap() error { return e.Err }

type flusher interface {
	Flush()
}

// Encoder writes a transition stream. Each chunk is written as one line and
// flushed immediately when the writer supports it.
type Encoder struct {
	w    io.Writer
	lead bool
	buf  []byte
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, buf: make([]byte, 0, 512)}
}

// Encode writes c followed by a newline.
func (e *Encoder) Encode(c Chunk) error {
	if c.Type.Lead() == e.lead {
		return ErrChunkOrder
	}
	data, err := marshal(c)
	if err != nil {
		var me *json.MarshalerError
		if errors.As(err, &me) {
			err = me.Err
		}
		return &EncodeError{Err: err}
	}
	e.buf = append(e.buf[:0], data...)
	e.buf = append(e.buf, '\n')
	if _, err := e.w.Write(e.buf); err != nil {
		return err
	}
	e.lead = true
	if f, ok := e.w.(flusher); ok {
		f.Flush()
	}
	return nil
}

// Started reports whether the lead chunk has been written.
func (e *Encoder) Started() bool { return e.lead }
