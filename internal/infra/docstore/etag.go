package docstore

import "strings"

// CompositeTag derives a single validation token from several part tokens
// (query result tokens or per-entity change vectors), joined with "=" in
// argument order. The scheme is order-sensitive on purpose: call sites are
// fixed, so a stable argument order gives a stable token. Any missing part
// voids the whole token, degrading the response to uncached.
func CompositeTag(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return strings.Join(parts, "=")
}
