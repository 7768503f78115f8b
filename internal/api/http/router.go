package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Admin          *handlers.AdminHandler
	Contact        *handlers.ContactHandler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        ratelimit.Limiter
	RateLimit      config.RateLimitConfig
	Gatherer       prometheus.Gatherer
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes. Public routes under a prefix are registered
// before the authenticated group so the group middleware never runs for them.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loginLimit := ratelimit.Middleware(cfg.Limiter, ratelimit.Rule{
		Bucket: "login",
		Limit:  cfg.RateLimit.LoginPerMinute,
		Window: time.Minute,
	}, logger, cfg.Metrics)
	contactLimit := ratelimit.Middleware(cfg.Limiter, ratelimit.Rule{
		Bucket: "contact",
		Limit:  cfg.RateLimit.ContactPerHour,
		Window: time.Hour,
	}, logger, cfg.Metrics)
	authenticate := cfg.AuthMiddleware.Handle

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/contact", contactLimit, cfg.Contact.Submit)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", loginLimit, cfg.Auth.RegisterUser)
	authGroup.Post("/users/login", loginLimit, cfg.Auth.LoginUser)
	authGroup.Post("/password/reset/request", loginLimit, cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", loginLimit, cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", authenticate, auth.RequireAnyRole(), cfg.Auth.ChangePassword)

	users := app.Group("/users", authenticate, auth.RequireUser())
	users.Get("/chats", cfg.Users.ListChats)
	users.Get("/chats/:chatId", cfg.Users.GetChat)
	users.Post("/chats/:chatId/messages", cfg.Users.AddMessage)
	users.Put("/chats/:chatId/read", cfg.Users.MarkRead)

	supportTeam := app.Group("/support-team")
	supportTeam.Post("/login", loginLimit, cfg.Auth.LoginStaff)
	supportTeam.Post("/user-chat", authenticate, auth.RequireUser(), cfg.Users.StartChat)

	staff := supportTeam.Group("", authenticate, auth.RequireSupport())
	staff.Get("/profile", cfg.Staff.Profile)
	staff.Put("/profile", cfg.Staff.UpdateProfile)
	staff.Get("/contacts", cfg.Staff.ListContacts)
	staff.Post("/send-email", cfg.Staff.SendEmail)
	staff.Get("/chats", cfg.Staff.ListChats)
	staff.Post("/chats", cfg.Staff.StartChat)
	staff.Get("/chats/:chatId", cfg.Staff.GetChat)
	staff.Post("/chats/:chatId/messages", cfg.Staff.AddMessage)
	staff.Put("/chats/:chatId/status", cfg.Staff.UpdateStatus)
	staff.Put("/chats/:chatId/read", cfg.Staff.MarkRead)
	staff.Get("/chats/:chatId/history", cfg.Staff.History)

	adminGroup := app.Group("/admin")
	adminGroup.Post("/login", loginLimit, cfg.Auth.LoginAdmin)

	admin := adminGroup.Group("", authenticate, auth.RequireAdmin())
	admin.Post("/staff", cfg.Admin.CreateStaff)
	admin.Get("/staff", cfg.Admin.ListStaff)
	admin.Get("/staff/:id", cfg.Admin.GetStaff)
	admin.Put("/staff/:id", cfg.Admin.UpdateStaff)
	admin.Delete("/staff/:id", cfg.Admin.DeactivateStaff)
	admin.Get("/contacts", cfg.Admin.ListContacts)
	admin.Get("/chats", cfg.Admin.ListChats)
	admin.Get("/reports/routing", cfg.Admin.RoutingReport)
	admin.Get("/reports/routing/export", cfg.Admin.ExportRoutingReport)
}
