package middleware

import (
	"mediflow-server/internal/config"
	"mediflow-server/internal/models"
	"mediflow-server/internal/utils"
	"strings"

	"github.com/gin-gonic/gin"
)

// Actor is the authenticated principal for the current request. It is built
// from the token claims and passed explicitly to domain operations; nothing
// downstream reads ambient session state.
type Actor struct {
	ID            string
	Role          models.Role
	AccountStatus string
}

// AuthMiddleware creates a middleware for JWT authentication.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		tokenString := parts[1]
		claims, err := utils.ValidateToken(tokenString, cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		if claims.AccountStatus != "" && claims.AccountStatus != models.AccountActive {
			utils.Forbidden(c, "Account is not active")
			c.Abort()
			return
		}

		// Set actor information in context for downstream handlers
		c.Set("actor", Actor{
			ID:            claims.UserID,
			Role:          claims.Role,
			AccountStatus: claims.AccountStatus,
		})

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			utils.InternalServerError(c, "Actor not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		isAllowed := false
		for _, allowedRole := range allowedRoles {
			if actor.Role == allowedRole {
				isAllowed = true
				break
			}
		}

		if !isAllowed {
			utils.Forbidden(c, "You do not have permission to access this resource.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetActor returns the authenticated actor for the request.
func GetActor(c *gin.Context) (Actor, bool) {
	value, exists := c.Get("actor")
	if !exists {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}
