package render

import (
	"bytes"
	"encoding/json"
	"strings"
)

// escapeAttr escapes s for use inside a double-quoted attribute value.
func escapeAttr(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&#39;")
		case '\n':
			buf.WriteString("&#10;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

// scriptJSON encodes v for embedding in a script element. encoding/json
// already escapes <, > and &; the trailing newline is dropped.
func scriptJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
