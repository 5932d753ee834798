package middleware

import (
	"context"
	"strings"

	"stackit/internal/forum/model"
	pkgerrors "stackit/pkg/errors"
	"stackit/pkg/utils/contextkey"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenAuthenticator resolves an access token to the actor it was issued for.
type TokenAuthenticator interface {
	Authenticate(raw string) (model.Actor, error)
}

// ActorMiddleware resolves the caller. Requests without a token continue as the
// anonymous guest; a token that fails verification is rejected outright.
// Browsers cannot set headers on websocket upgrades, so those may pass the token
// in the query string.
func ActorMiddleware(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" && websocket.IsWebSocketUpgrade(c.Request) {
			token = strings.TrimSpace(c.Query("token"))
		}

		actor := model.Anonymous()
		if token != "" {
			if auth == nil {
				response.AbortWithErrorCode(c, pkgerrors.ServiceUnavailable, "auth service unavailable")
				return
			}
			resolved, err := auth.Authenticate(token)
			if err != nil {
				response.AbortWithError(c, err)
				return
			}
			actor = resolved
		}
		SetActor(c, actor)
		c.Next()
	}
}

// SetActor stores actor on both the gin and request contexts.
func SetActor(c *gin.Context, actor model.Actor) {
	c.Set(contextkey.GinActor, actor)
	ctx := c.Request.Context()
	if actor.IsAuthenticated() {
		ctx = context.WithValue(ctx, contextkey.UserID, actor.ID)
	}
	ctx = context.WithValue(ctx, contextkey.UserRole, string(actor.Role))
	c.Request = c.Request.WithContext(ctx)
}

// ActorFrom returns the actor resolved for the request, or the guest.
func ActorFrom(c *gin.Context) model.Actor {
	if v, ok := c.Get(contextkey.GinActor); ok {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Anonymous()
}

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsAuthenticated() {
			response.AbortWithErrorCode(c, pkgerrors.Unauthorized, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. Anonymous callers get 401.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if !actor.IsAuthenticated() {
			response.AbortWithErrorCode(c, pkgerrors.Unauthorized, "authentication required")
			return
		}
		if !hasRole(actor.Role, roles) {
			response.AbortWithErrorCode(c, pkgerrors.Forbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hasRole(role model.Role, allowed []model.Role) bool {
	for _, item := range allowed {
		if role == item {
			return true
		}
	}
	return false
}
