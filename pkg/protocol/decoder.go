package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	terrors "github.com/vango-dev/transit/internal/errors"
)

// DefaultMaxLineSize bounds a single chunk line (8MB).
const DefaultMaxLineSize = 8 * 1024 * 1024

// ErrLineTooLong is returned when a line exceeds the parser's limit.
var ErrLineTooLong = errors.New("protocol: line exceeds limit")

// Parser splits a transition stream into chunks. Input may be fed in pieces
// of any size; only a newline ends a line.
type Parser struct {
	// MaxLineSize overrides DefaultMaxLineSize when positive.
	MaxLineSize int

	buf  []byte
	lead bool
}

// Feed appends data and returns every chunk completed by it. After an
// error the parser should be discarded.
func (p *Parser) Feed(data []byte) ([]Chunk, error) {
	p.buf = append(p.buf, data...)
	var out []Chunk
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		c, ok, err := p.line(line)
		p.buf = p.buf[i+1:]
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, c)
		}
	}
	if len(p.buf) == 0 {
		p.buf = p.buf[:0:0]
	} else if len(p.buf) > p.max() {
		return out, ErrLineTooLong
	}
	return out, nil
}

// Flush parses a final line that had no trailing newline.
func (p *Parser) Flush() ([]Chunk, error) {
	rest := p.buf
	p.buf = nil
	c, ok, err := p.line(rest)
	if err != nil || !ok {
		return nil, err
	}
	return []Chunk{c}, nil
}

func (p *Parser) max() int {
	if p.MaxLineSize > 0 {
		return p.MaxLineSize
	}
	return DefaultMaxLineSize
}

func (p *Parser) line(line []byte) (Chunk, bool, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Chunk{}, false, nil
	}
	if len(line) > p.max() {
		return Chunk{}, false, ErrLineTooLong
	}
	var c Chunk
	if err := json.Unmarshal(line, &c); err != nil {
		if errors.Is(err, ErrMalformedChunk) {
			return Chunk{}, false, err
		}
		return Chunk{}, false, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
	}
	if c.Type.Lead() == p.lead {
		return Chunk{}, false, fmt.Errorf("%w: unexpected %s chunk", ErrChunkOrder, c.Type)
	}
	p.lead = true
	return c, true, nil
}

// Decoder reads chunks from a stream.
type Decoder struct {
	r       io.Reader
	p       Parser
	buf     []byte
	pending []Chunk
	err     error
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, 32*1024)}
}

// Next returns the next chunk. It returns io.EOF after the last chunk of a
// well-formed stream.
func (d *Decoder) Next() (Chunk, error) {
	for len(d.pending) == 0 {
		if d.err != nil {
			return Chunk{}, d.err
		}
		n, rerr := d.r.Read(d.buf)
		if n > 0 {
			cs, err := d.p.Feed(d.buf[:n])
			d.pending = append(d.pending, cs...)
			if err != nil {
				d.err = streamError(err)
				continue
			}
		}
		if rerr == nil {
			continue
		}
		if rerr != io.EOF {
			d.err = rerr
			continue
		}
		cs, err := d.p.Flush()
		d.pending = append(d.pending, cs...)
		if err != nil {
			d.err = streamError(err)
		} else {
			d.err = io.EOF
		}
	}
	c := d.pending[0]
	d.pending = d.pending[1:]
	return c, nil
}

// streamError tags a parse failure with its error code; errors.Is still
// reaches the protocol sentinel.
func streamError(err error) error {
	return terrors.New("E302").Wrap(err)
}
