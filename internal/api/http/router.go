package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/http/handlers"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/domain"
)

// StaticDir serves locally stored images.
type StaticDir struct {
	Prefix string
	Root   string
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Posts    *handlers.PostsHandler
	Admin    *handlers.AdminHandler
	Media    *handlers.MediaHandler
	Sessions *auth.SessionMiddleware
	Metrics  fiber.Handler
	Static   *StaticDir
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}
	if cfg.Static != nil {
		app.Static(cfg.Static.Prefix, cfg.Static.Root)
	}

	authenticated := auth.Require(auth.AuthenticatedOnly())

	api := app.Group("/api", cfg.Sessions.Handle)
	api.Post("/signup", cfg.Auth.Signup)
	api.Post("/login", cfg.Auth.Login)
	api.Post("/logout", cfg.Auth.Logout)
	api.Get("/user", authenticated, cfg.Auth.WhoAmI)

	api.Get("/blogs", cfg.Posts.List)
	api.Get("/blogs/:id", cfg.Posts.Get)
	api.Post("/blogs", authenticated, cfg.Posts.Create)

	mine := api.Group("/myblogs", authenticated)
	mine.Get("/", cfg.Posts.ListMine)
	mine.Get("/:id", cfg.Posts.GetMine)
	mine.Put("/:id", cfg.Posts.Update)
	mine.Delete("/:id", cfg.Posts.Delete)

	admin := api.Group("/admin", auth.Require(auth.RoleRequired(domain.RoleAdmin)))
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Delete("/users/:id", auth.RequireNotSelf("id"), cfg.Admin.DeleteUser)
	admin.Get("/blogs", cfg.Admin.ListPosts)
	admin.Delete("/blogs/:id", cfg.Admin.DeletePost)
	admin.Get("/stats", cfg.Admin.Stats)

	api.Post("/upload-avatar", cfg.Media.UploadAvatar)
	api.Post("/upload-image", authenticated, cfg.Media.UploadImage)
	api.Post("/delete-image", authenticated, cfg.Media.DeleteImage)
}
