package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/pkg/jwt"
	"taskhub/internal/pkg/response"
	"taskhub/internal/policy"
)

const subjectKey = "subject"

// JWTAuth validates the bearer token and stores the acting subject in
// the request context. Everything behind it can assume Subject(c) is set.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set(subjectKey, policy.Subject{ID: claims.UserID, Roles: claims.Roles})
		c.Next()
	}
}

// Subject returns the authenticated subject, or false when the request
// did not pass JWTAuth.
func Subject(c *gin.Context) (policy.Subject, bool) {
	v, ok := c.Get(subjectKey)
	if !ok {
		return policy.Subject{}, false
	}
	sub, ok := v.(policy.Subject)
	return sub, ok
}

// RequireRole ensures the authenticated user holds the named role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, ok := Subject(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required")
			c.Abort()
			return
		}
		if !sub.HasRole(role) {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "Access denied: insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly requires the admin role.
func AdminOnly() gin.HandlerFunc {
	return RequireRole("admin")
}
