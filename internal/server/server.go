// Package server assembles the blog's fiber app from its feature packages.
package server

import (
	"database/sql"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jwtware "github.com/gofiber/jwt/v2"

	"github.com/wichananm65/blog-app/internal/comment"
	"github.com/wichananm65/blog-app/internal/config"
	"github.com/wichananm65/blog-app/internal/mail"
	"github.com/wichananm65/blog-app/internal/post"
	"github.com/wichananm65/blog-app/internal/user"
	"github.com/wichananm65/blog-app/internal/web"
)

// Repositories is the storage the app runs on.
type Repositories struct {
	Users    user.Repository
	Posts    post.Repository
	Comments comment.Repository
}

func PostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Users:    user.NewPostgresRepository(db),
		Posts:    post.NewPostgresRepository(db),
		Comments: comment.NewPostgresRepository(db),
	}
}

func InMemoryRepositories() Repositories {
	return Repositories{
		Users:    user.NewInMemoryRepository(nil),
		Posts:    post.NewInMemoryRepository(nil),
		Comments: comment.NewInMemoryRepository(nil),
	}
}

type Deps struct {
	Repositories
	Mailer mail.Mailer
}

// New builds the app. Protected routes run the JWT check first and need a
// valid session cookie.
func New(cfg config.Config, deps Deps) (*fiber.App, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if deps.Mailer == nil {
		deps.Mailer = mail.NewLogMailer()
	}

	tokens := user.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	userService := user.NewService(deps.Users, tokens, deps.Mailer, cfg.SiteURL)
	userHandler := user.NewHandler(userService, tokens, user.NewAvatarStore(cfg.MediaDir), cfg.IsProd())

	commentService := comment.NewService(deps.Comments, userService)
	postService := post.NewService(deps.Posts, userService)
	postHandler := post.NewHandler(postService, commentService, userService, cfg.PageSize)

	app := web.NewApp()
	app.Use(recover.New())
	app.Use(logger.New())
	if cfg.CSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:csrf_token",
			CookieName:     "csrftoken",
			CookieSameSite: "Lax",
			CookieSecure:   cfg.IsProd(),
			Expiration:     12 * time.Hour,
			ContextKey:     "csrf",
		}))
	}
	app.Get(web.MediaURL+user.DefaultImage, web.DefaultAvatar)
	app.Static("/media", cfg.MediaDir)
	app.Use(web.Messages())
	app.Use(user.Identify(tokens, userService))

	app.Get("/about", about)
	userHandler.RegisterPublicRoutes(app)
	postHandler.RegisterPublicRoutes(app)

	// the gate sits on each protected route so unknown paths still 404
	requireLogin := jwtware.New(jwtware.Config{
		SigningKey:     tokens.Secret(),
		SigningMethod:  "HS256",
		TokenLookup:    "cookie:" + user.CookieName,
		SuccessHandler: sessionOnly,
		ErrorHandler:   loginRequired,
	})
	userHandler.RegisterProtectedRoutes(app, requireLogin)
	postHandler.RegisterProtectedRoutes(app, requireLogin)

	return app, nil
}

func about(c *fiber.Ctx) error {
	return c.Render("about", fiber.Map{"title": "About"})
}

// sessionOnly turns away tokens that verify but were not issued at login,
// such as password reset tokens.
func sessionOnly(c *fiber.Ctx) error {
	if !user.HasSession(c) {
		return loginRequired(c, nil)
	}
	return c.Next()
}

// loginRequired sends anonymous visitors to the login page and back again.
func loginRequired(c *fiber.Ctx, _ error) error {
	next := c.OriginalURL()
	if c.Method() != fiber.MethodGet {
		next = c.Path()
	}
	return web.Redirect(c, "/login?next="+url.QueryEscape(next))
}
