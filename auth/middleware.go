package auth

import (
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"channel-chat/infrastructure/wire"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Middleware handles JWT validation for incoming requests.
// The token is read from the Authorization header, or from the "token" query
// parameter for clients that cannot set headers on a websocket upgrade.
func Middleware(issuer TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Expecting the standard "Bearer <token>" format
		tokenStr := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, wire.NewErrorResponse(errors.ErrInvalidToken))
			return
		}

		identity, err := issuer.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, wire.NewErrorResponse(errors.ErrInvalidToken))
			return
		}

		// Inject user identity for downstream handlers
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity set by Middleware.
func IdentityFrom(c *gin.Context) (chat.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return chat.Identity{}, false
	}
	identity, ok := value.(chat.Identity)
	return identity, ok
}
