package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAddr     = ":8080"
	defaultMediaDir = "./media"
	defaultSiteURL  = "http://localhost:8080"
	defaultPageSize = 5
	defaultTokenTTL = 72 * time.Hour
	devJWTSecret    = "dev-secret-change-me"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr        string
	Env         string
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration
	MediaDir    string
	SiteURL     string
	PageSize    int
	CSRF        bool
}

// Load reads an optional .env file and then the process environment.
// An empty DATABASE_URL selects the in-memory repositories.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) Config {
	cfg := Config{
		Addr:        getenv("BLOG_ADDR"),
		Env:         strings.ToLower(getenv("BLOG_ENV")),
		DatabaseURL: getenv("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET"),
		TokenTTL:    defaultTokenTTL,
		MediaDir:    getenv("BLOG_MEDIA_DIR"),
		SiteURL:     strings.TrimRight(getenv("BLOG_SITE_URL"), "/"),
		PageSize:    defaultPageSize,
		CSRF:        true,
	}

	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.JWTSecret == "" && !cfg.IsProd() {
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = defaultMediaDir
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = defaultSiteURL
	}
	if v := getenv("BLOG_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
	if v := getenv("BLOG_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TokenTTL = d
		}
	}
	if v := getenv("BLOG_CSRF"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CSRF = b
		}
	}

	return cfg
}

func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}
