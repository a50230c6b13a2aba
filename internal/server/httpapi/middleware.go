package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PhoenixRFA/backlogapp/internal/common"
	"github.com/PhoenixRFA/backlogapp/internal/server/auth"
)

// Context keys set by BearerAuth for downstream handlers.
const (
	ContextAccountIDKey   = "account_id"
	ContextDisplayNameKey = "display_name"
)

// BearerAuth verifies the Authorization header and stores the account id
// and display name in the request context. Requests without a valid bearer
// token are rejected with 401.
func BearerAuth(tokens *auth.TokenFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerSchemePrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("missing bearer token"))
			return
		}

		id, name, err := tokens.ParseToken(strings.TrimPrefix(header, common.BearerSchemePrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid or expired token"))
			return
		}

		c.Set(ContextAccountIDKey, id)
		c.Set(ContextDisplayNameKey, name)
		c.Next()
	}
}

func accountID(c *gin.Context) string {
	return c.GetString(ContextAccountIDKey)
}
