// Package protocol implements the transition wire format.
//
// A transition response is newline-delimited JSON: one Chunk per line. The
// first chunk is exactly one of initial, redirect or document; every later
// chunk is deferred.
//
//	{"type":"initial","kind":"page","status":200,"payload":{...},"head":"..."}
//	{"type":"deferred","id":"users-1a2b3c4d:comments","ok":true,"value":[...]}
//	{"type":"deferred","id":"users-1a2b3c4d:stats","ok":false,"error":"timeout"}
//
// Encoder writes and flushes one line per chunk. Parser accepts the stream
// in arbitrary pieces and splits strictly on newlines, so chunk boundaries
// from the transport never affect the result. Decoder wraps a Parser around
// an io.Reader.
package protocol
