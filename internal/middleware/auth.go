package middleware

import (
	"net/http"
	"strings"

	"huddle/internal/pkg/jwt"
	"huddle/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// JWTAuth verifies the bearer access token and stores the authenticated
// account id in the gin context under "user_id".
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.AbortError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Missing Authorization header")
			return
		}

		if !strings.HasPrefix(header, "Bearer ") {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if tokenStr == "" {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Empty bearer token")
			return
		}

		accountID, err := jwtService.Verify(tokenStr)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set("user_id", accountID)

		c.Next()
	}
}
