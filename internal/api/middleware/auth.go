package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/models"
	"github.com/Alexjoshwa/agri-1.0/internal/services"
)

// ContextKeyActor holds the resolved *models.SessionIdentity in Gin context.
// It is absent for unauthenticated requests.
const ContextKeyActor = "actor"

// ActorMiddleware resolves who is acting for the request. A bearer session
// token wins; without one the persisted singleton identity is used. A
// malformed or expired token is rejected rather than silently downgraded.
func ActorMiddleware(sessions services.ISessionService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
				return
			}

			identity, err := sessions.Resolve(parts[1])
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session token"})
				return
			}
			c.Set(ContextKeyActor, identity)
			c.Next()
			return
		}

		identity, err := sessions.Current(c.Request.Context())
		if err != nil {
			// Reads of the session slot degrade to "nobody" on storage trouble.
			log.Warnw("Failed to read current session", "error", err)
		}
		if identity != nil {
			c.Set(ContextKeyActor, identity)
		}
		c.Next()
	}
}

// ActorFromContext returns the identity resolved by ActorMiddleware, or nil.
func ActorFromContext(c *gin.Context) *models.SessionIdentity {
	val, exists := c.Get(ContextKeyActor)
	if !exists {
		return nil
	}
	identity, _ := val.(*models.SessionIdentity)
	return identity
}
