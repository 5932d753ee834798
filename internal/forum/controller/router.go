package controller

import (
	"time"

	commonmw "stackit/internal/common/http/middleware"
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/model"
	"stackit/internal/forum/notify"
	"stackit/internal/forum/service"

	"github.com/gin-gonic/gin"
)

// Dependencies are the services behind the HTTP surface. Media, Hub, Limiter and
// HealthChecks are optional.
type Dependencies struct {
	Auth         *service.AuthService
	Content      *service.ContentService
	Workflow     *service.Workflow
	Media        *service.MediaService
	Hub          *notify.Hub
	Limiter      middleware.Limiter
	HealthChecks map[string]HealthCheck
}

// RouteConfig tunes the cross-cutting behaviour of the routes.
type RouteConfig struct {
	RequestTimeout time.Duration
	RateWindow     time.Duration
	Limits         RouteLimits
}

// RouteLimits holds the rate limit policy of each write route.
type RouteLimits struct {
	Auth     middleware.RateLimitPolicy `yaml:"auth"`
	Question middleware.RateLimitPolicy `yaml:"question"`
	Answer   middleware.RateLimitPolicy `yaml:"answer"`
	Vote     middleware.RateLimitPolicy `yaml:"vote"`
	Media    middleware.RateLimitPolicy `yaml:"media"`
}

// RegisterRoutes mounts the forum API on router.
func RegisterRoutes(router gin.IRouter, deps Dependencies, cfg RouteConfig) {
	limit := func(routeKey string, policy middleware.RateLimitPolicy) gin.HandlerFunc {
		return middleware.RateLimitMiddleware(deps.Limiter, routeKey, policy, cfg.RateWindow)
	}
	admin := middleware.RequireRole(model.RoleAdmin)
	signedIn := middleware.RequireAuth()

	health := NewHealthController(deps.HealthChecks)
	router.GET("/health", health.Health)

	var authn middleware.TokenAuthenticator
	if deps.Auth != nil {
		authn = deps.Auth
	}
	api := router.Group("/api/v1", middleware.ActorMiddleware(authn))

	// Streams outlive any request deadline.
	notifications := NewNotificationController(deps.Content, deps.Hub)
	api.GET("/notifications/stream", signedIn, notifications.Stream)

	timed := api.Group("", commonmw.Deadline(cfg.RequestTimeout))
	timed.GET("/health", health.Health)

	authController := NewAuthController(deps.Auth)
	timed.POST("/auth/register", limit("auth.register", cfg.Limits.Auth), authController.Register)
	timed.POST("/auth/login", limit("auth.login", cfg.Limits.Auth), authController.Login)

	questions := NewQuestionController(deps.Content, deps.Workflow)
	timed.GET("/questions", questions.List)
	timed.GET("/questions/:id", questions.Get)
	timed.POST("/questions", limit("questions.create", cfg.Limits.Question), questions.Create)
	timed.POST("/questions/:id/approve", admin, questions.Approve)
	timed.POST("/questions/:id/reject", admin, questions.Reject)
	timed.POST("/questions/:id/vote", limit("questions.vote", cfg.Limits.Vote), questions.Vote)
	timed.POST("/questions/:id/answers", limit("answers.create", cfg.Limits.Answer), questions.PostAnswer)
	timed.GET("/tags", questions.Tags)

	answers := NewAnswerController(deps.Workflow)
	timed.POST("/answers/:id/accept", answers.Accept)
	timed.POST("/answers/:id/vote", limit("answers.vote", cfg.Limits.Vote), answers.Vote)

	users := NewUserController(deps.Content)
	timed.GET("/users/:id/questions", users.Questions)
	timed.GET("/users/:id/answers", users.Answers)
	timed.GET("/users/:id/stats", users.Stats)

	timed.GET("/notifications", signedIn, notifications.List)
	timed.GET("/notifications/unread-count", signedIn, notifications.UnreadCount)
	timed.PATCH("/notifications/:id", signedIn, notifications.Update)
	timed.POST("/notifications/read-all", signedIn, notifications.ReadAll)

	adminController := NewAdminController(deps.Content)
	timed.GET("/admin/stats", admin, adminController.Stats)
	timed.GET("/admin/activity", admin, adminController.Activity)
	timed.GET("/admin/users", admin, adminController.Users)

	if deps.Media != nil {
		media := NewMediaController(deps.Media)
		timed.POST("/media/uploads", limit("media.upload", cfg.Limits.Media), media.RequestUpload)
		timed.POST("/media/uploads/confirm", media.Confirm)
	}
}
