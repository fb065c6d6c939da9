package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/ManuelReschke/CourseFox/internal/pkg/ratelimit"
)

type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Use(middleware.SecurityHeaders())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(h.origins(), ","),
		AllowOriginsFunc: h.allowDevOrigin,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	app.Use(ratelimit.New(h.deps.Config.RateLimit, h.deps.LimiterStorage, webhookPath))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("CourseFox API is running")
	})
}

func (h HttpRouter) origins() []string {
	origins := make([]string, 0, len(h.deps.Config.App.FrontendURL))
	for _, o := range h.deps.Config.AllowedOrigins() {
		origins = append(origins, strings.TrimRight(o, "/"))
	}
	if len(origins) == 0 {
		origins = append(origins, h.deps.Config.FrontendBaseURL())
	}
	return origins
}

// allowDevOrigin additionally accepts any localhost origin in dev.
func (h HttpRouter) allowDevOrigin(origin string) bool {
	if !h.deps.Config.IsDev() {
		return false
	}
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}
