package router

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/checkout"
	"github.com/ManuelReschke/CourseFox/internal/pkg/config"
)

const webhookPath = "/api/v1/purchase/webhook"

const bodyLimit = 4 * 1024 * 1024

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps are the shared collaborators the routers wire into controllers. A nil
// Repositories factory is built from DB.
type Deps struct {
	Config         *config.Config
	DB             *gorm.DB
	Repositories   *repository.Factory
	Checkout       *checkout.Service
	LimiterStorage fiber.Storage
}

// ServerConfig builds the fiber settings. With a proxy header configured,
// c.IP() is the first valid address in that header, and only for requests
// from the trusted proxies when that list is set.
func ServerConfig(cfg *config.Config) fiber.Config {
	fc := fiber.Config{
		AppName:   "CourseFox",
		BodyLimit: bodyLimit,
	}
	if header := strings.TrimSpace(cfg.App.ProxyHeader); header != "" {
		fc.ProxyHeader = header
		fc.EnableIPValidation = true
		if proxies := cfg.TrustedProxyList(); len(proxies) > 0 {
			fc.EnableTrustedProxyCheck = true
			fc.TrustedProxies = proxies
		}
	}
	return fc
}

func InstallRouter(app *fiber.App, deps Deps) {
	if deps.Repositories == nil {
		deps.Repositories = repository.NewFactory(deps.DB)
	}
	// HttpRouter installs the global middleware chain, so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
