// Package routepath normalizes and decodes URL paths so that the server, the
// native route adapter and the client runtime all see the same segments.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// CanonicalizeResult contains the result of path canonicalization.
type CanonicalizeResult struct {
	// Path is the canonicalized path, still percent-encoded.
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Hash is the fragment (without leading "#").
	Hash string

	// Changed indicates if the path was modified during canonicalization.
	Changed bool
}

// Target rebuilds path, query and hash into a single navigable string.
func (r CanonicalizeResult) Target() string {
	s := r.Path
	if r.Query != "" {
		s += "?" + r.Query
	}
	if r.Hash != "" {
		s += "#" + r.Hash
	}
	return s
}

// Path canonicalization errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// CanonicalizePath normalizes a URL path:
//   - trailing slash removed (except for root "/")
//   - repeated slashes collapsed
//   - "." segments removed and ".." segments resolved
//
// Backslashes, NUL bytes, malformed percent-escapes and ".." above the root
// are rejected. Query and fragment are split off and preserved verbatim.
func CanonicalizePath(input string) (CanonicalizeResult, error) {
	if input == "" {
		return CanonicalizeResult{Path: "/", Changed: true}, nil
	}

	rest, hash, _ := strings.Cut(input, "#")
	path, query, _ := strings.Cut(rest, "?")

	if strings.Contains(path, "\\") {
		return CanonicalizeResult{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return CanonicalizeResult{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return CanonicalizeResult{}, err
		}
	}

	original := path
	var out []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) == 0 {
				return CanonicalizeResult{}, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	path = "/" + strings.Join(out, "/")

	return CanonicalizeResult{
		Path:    path,
		Query:   query,
		Hash:    hash,
		Changed: path != original,
	}, nil
}

// validatePercentEscapes checks that every "%" starts a %XX hex escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// SplitSegments splits a path into its raw (still encoded) segments.
// The root path has no segments.
func SplitSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment decodes a single raw path segment.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	return decoded, nil
}

// ValidateTarget canonicalizes a same-origin navigation target
// ("/path?query#hash"). Absolute and protocol-relative URLs are rejected.
func ValidateTarget(target string) (CanonicalizeResult, error) {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return CanonicalizeResult{}, ErrInvalidPath
	}
	return CanonicalizePath(target)
}

// SameOrigin reports whether location resolves to the same origin as base.
// Relative locations are always same-origin.
func SameOrigin(base *url.URL, location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		return true
	}
	if base == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}
