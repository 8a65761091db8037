package middleware

import (
	"strings"

	"ai-agent-portal/backend/pkg/errors"
	"ai-agent-portal/backend/pkg/jwt"
	"ai-agent-portal/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context
func JWTAuthMiddleware(jwtService *jwt.Service, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		// Strip "Bearer " prefix if present
		if strings.HasPrefix(token, "Bearer ") {
			token = token[7:]
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			if err == jwt.ErrExpiredToken {
				c.Error(errors.NewUnauthorizedError("TOKEN_EXPIRED", "Session has expired, please log in again"))
			} else {
				c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid authentication token"))
			}
			c.Abort()
			return
		}

		// Store claims and identity in the context for downstream handlers
		c.Set("claims", claims)
		c.Set("userId", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireRole returns a middleware that requires the token to carry a specific role
func RequireRole(role jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}

		jwtClaims, ok := claims.(*jwt.Claims)
		if !ok {
			c.Error(errors.NewInternalServerError("INVALID_CLAIMS", "Invalid JWT claims format"))
			c.Abort()
			return
		}

		if !jwtClaims.HasRole(role) {
			c.Error(errors.NewForbiddenError("INSUFFICIENT_ROLE", "Your role does not allow this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClaimsFromContext returns the validated claims set by JWTAuthMiddleware
func ClaimsFromContext(c *gin.Context) (*jwt.Claims, bool) {
	claims, exists := c.Get("claims")
	if !exists {
		return nil, false
	}
	jwtClaims, ok := claims.(*jwt.Claims)
	return jwtClaims, ok
}
