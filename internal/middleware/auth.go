package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/log"
)

// Context keys set by JWTAuthMiddleware.
const (
	KeyUserID = "user_id"
	KeyEmail  = "email"
	KeyRole   = "role"
)

// JWTAuthMiddleware validates the JWT token in the Authorization header.
func JWTAuthMiddleware(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Browsers cannot set headers on websocket upgrades.
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyRole, claims.Role)
		ctx := log.CtxWithValues(c.Request.Context(), log.Kv{"user": claims.UserID})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// ActorFrom returns the authenticated actor stored by JWTAuthMiddleware.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	userID := c.GetString(KeyUserID)
	role := domain.Role(c.GetString(KeyRole))
	if userID == "" || !role.IsValid() {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: userID, Role: role}, true
}

// RequireRole only lets through users holding one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authorized"})
			return
		}
		if !slices.Contains(roles, actor.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
			return
		}
		c.Next()
	}
}
