package middleware

import (
	"net/http"
	"strings"

	"library-lending-api/internal/domain/account"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the trusted opaque user identifier. There is no
// credential check behind it; an upstream gateway is assumed to have done
// that.
const HeaderUserID = "X-User-Id"

const ctxUserIDKey = "user_id"

type IdentityMiddleware struct{}

func NewIdentityMiddleware() *IdentityMiddleware {
	return &IdentityMiddleware{}
}

func (m *IdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))

		userID, err := account.ParseUserID(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Valid " + HeaderUserID + " header required",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the validated user document id from context.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}
