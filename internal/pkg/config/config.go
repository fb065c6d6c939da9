package config

import (
	"fmt"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

const defaultFrontendURL = "http://localhost:5173"

// Prices are stored in major units and sent to the gateway times 100, so only
// currencies with a 1/100 minor unit are accepted.
var nonCentCurrencies = map[string]bool{
	// zero decimal
	"bif": true, "clp": true, "djf": true, "gnf": true, "isk": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true,
	"vnd": true, "vuv": true, "xaf": true, "xof": true, "xpf": true,
	// three decimal
	"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
}

// Config holds the typed application configuration read from the environment.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Auth      AuthConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	Reconcile ReconcileConfig
}

type AppConfig struct {
	Host        string   `env:"APP_HOST" envDefault:"localhost"`
	Port        string   `env:"APP_PORT" envDefault:"4000"`
	Env         string   `env:"APP_ENV" envDefault:"prod"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	FrontendURL []string `env:"FRONTEND_URL" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	// ProxyHeader names the header carrying the client address, e.g.
	// X-Forwarded-For. Empty means requests arrive directly.
	ProxyHeader    string   `env:"PROXY_HEADER"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type DatabaseConfig struct {
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	Name     string `env:"DB_NAME"`
}

type CacheConfig struct {
	Host     string `env:"CACHE_HOST" envDefault:"localhost"`
	Port     string `env:"CACHE_PORT" envDefault:"6379"`
	Password string `env:"CACHE_PASSWORD"`
}

type AuthConfig struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CookieSecure   *bool         `env:"COOKIE_SECURE"`
	CookieSameSite string        `env:"COOKIE_SAME_SITE"`
}

type CheckoutConfig struct {
	StripeSecretKey   string   `env:"STRIPE_SECRET_KEY"`
	WebhookSecret     string   `env:"WEBHOOK_ENDPOINT_SECRET"`
	FrontendPublicURL string   `env:"FRONTEND_PUBLIC_URL"`
	Currency          string   `env:"CHECKOUT_CURRENCY" envDefault:"inr"`
	AllowedCountries  []string `env:"CHECKOUT_ALLOWED_COUNTRIES" envSeparator:"," envDefault:"IN"`
}

type RateLimitConfig struct {
	Backend string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	Window  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	Max     int           `env:"RATE_LIMIT_MAX" envDefault:"300"`
	MaxKeys int           `env:"RATE_LIMIT_MAX_KEYS" envDefault:"10000"`
}

type ReconcileConfig struct {
	Interval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"10m"`
	MinAge   time.Duration `env:"RECONCILE_MIN_AGE" envDefault:"5m"`
	Batch    int           `env:"RECONCILE_BATCH" envDefault:"50"`
}

// Load parses the process environment. Call env.SetupEnvFile first so values
// from .env are visible.
func Load() (*Config, error) {
	cfg, err := cenv.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Checkout.Currency = strings.ToLower(strings.TrimSpace(cfg.Checkout.Currency))
	if len(cfg.Checkout.Currency) != 3 || nonCentCurrencies[cfg.Checkout.Currency] {
		return nil, fmt.Errorf("CHECKOUT_CURRENCY %q: only currencies with two decimal places are supported", cfg.Checkout.Currency)
	}
	return &cfg, nil
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}

// FrontendBaseURL resolves the redirect base used for checkout success and
// cancel pages: FRONTEND_PUBLIC_URL, else the first FRONTEND_URL origin, else
// the local dev server. The value is not validated here.
func (c *Config) FrontendBaseURL() string {
	if explicit := strings.TrimSpace(c.Checkout.FrontendPublicURL); explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	for _, origin := range c.AllowedOrigins() {
		return strings.TrimRight(origin, "/")
	}
	return defaultFrontendURL
}

// AllowedOrigins returns the trimmed, non-empty CORS origins.
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.App.FrontendURL))
	for _, o := range c.App.FrontendURL {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// TrustedProxyList returns the trimmed, non-empty proxy addresses or CIDRs.
func (c *Config) TrustedProxyList() []string {
	proxies := make([]string, 0, len(c.App.TrustedProxies))
	for _, p := range c.App.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

// SecureCookies defaults to true outside of dev unless COOKIE_SECURE is set.
func (c *Config) SecureCookies() bool {
	if c.Auth.CookieSecure != nil {
		return *c.Auth.CookieSecure
	}
	return !c.IsDev()
}

// CookieSameSite returns COOKIE_SAME_SITE or None for secure cookies and Lax otherwise.
func (c *Config) CookieSameSite() string {
	if s := strings.TrimSpace(c.Auth.CookieSameSite); s != "" {
		return s
	}
	if c.SecureCookies() {
		return "None"
	}
	return "Lax"
}
