package router

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// RouteID derives the route id from a slash-separated path relative to the
// routes root. The readable slug is followed by a hash of the exact path, so
// "users/[id].go" and "users/id.go" never share an id.
func RouteID(relPath string) string {
	base := strings.TrimSuffix(relPath, extOf(relPath))

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "route"
	}
	return fmt.Sprintf("%s-%08x", slug, uint32(xxhash.Sum64String(relPath)))
}

func extOf(p string) string {
	i := strings.LastIndexByte(p, '.')
	if i < 0 || strings.LastIndexByte(p, '/') > i {
		return ""
	}
	return p[i:]
}
