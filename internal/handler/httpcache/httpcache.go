// Package httpcache validates conditional requests against the document
// store's change tracking. Tokens come from two places: a query's result
// token, or the concatenated change vectors of the entities a response was
// assembled from (see docstore.CompositeTag). Either way the comparison is a
// strong, exact-match ETag check.
package httpcache

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every cacheable response is revalidated by the client before reuse; the
// tokens are strong validators, so revalidation is cheap (304).
const cacheControl = "public, must-revalidate"

// Reply writes body with status, validated against the request's
// If-None-Match token. Only a single client token is supported; multi-value
// lists never match. An empty etag degrades to an uncached response; this
// layer never fails the request.
func Reply(c *gin.Context, status int, etag string, body any) {
	if etag == "" {
		c.JSON(status, body)
		return
	}

	c.Header("ETag", etag)
	c.Header("Cache-Control", cacheControl)

	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(status, body)
}
