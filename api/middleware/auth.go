package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/models"
)

// Auth returns middleware enforcing API-key authentication. Clients present
// the key either as "X-API-Key: <key>" or "Authorization: Bearer <key>".
// With no keys configured the server runs open and the middleware passes
// everything through.
//
// The accepted key is stored on the context under "api_key", which the rate
// limiter uses as the client identity.
func Auth(apiKeys []string) gin.HandlerFunc {
	if len(apiKeys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	valid := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			valid[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		key := presentedKey(c)
		if key == "" {
			unauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}
		if _, ok := valid[key]; !ok {
			unauthorized(c, "invalid API key")
			return
		}

		c.Set("api_key", key)
		c.Next()
	}
}

// presentedKey reads the API key from the request, trying X-API-Key before
// the Authorization header.
func presentedKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if after, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ScrapeResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
