package security

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"CollabProject/tools/errs"
	jwtsec "CollabProject/tools/security"
)

// Context key the rest of the request pipeline reads the caller from.
const CtxUserIDKey = "auth_user_id"

// Middleware verifies the bearer token and stores the user ID in the gin
// context. Business failures are HTTP 401 with a coded body.
func Middleware(opts jwtsec.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenExpired)
			return
		}
		sub, err := jwtsec.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenExpired.WithDetail(err.Error()))
			return
		}
		userID, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID reads the authenticated caller set by Middleware.
func CurrentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz != "" && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	// Fallback for clients that send the raw token.
	return strings.TrimSpace(c.GetHeader("authorization"))
}
