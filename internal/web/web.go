// Package web holds the pieces every HTML handler shares: the fiber app with
// its template engine and error pages, flash messages and pagination.
package web

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/template/html/v2"

	"github.com/wichananm65/blog-app/internal/form"
)

//go:embed templates
var templateFS embed.FS

//go:embed static/default-avatar.png
var defaultAvatar []byte

const (
	BaseLayout = "layouts/base"
	MediaURL   = "/media/"
	bodyLimit  = 6 << 20
)

// NewEngine parses the embedded templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(map[string]interface{}{
		"date":       formatDate,
		"datetime":   formatDateTime,
		"isoDate":    isoDate,
		"media":      mediaPath,
		"fieldError": fieldError,
		"truncate":   truncate,
	})
	return engine
}

// NewApp returns a fiber app wired to the template engine. Locals are exposed
// to every template so middleware can publish the current user, flash
// messages and the CSRF token. The app is immutable: repositories keep
// parsed form values after the request buffer is reused.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:           "blog",
		Views:             NewEngine(),
		ViewsLayout:       BaseLayout,
		PassLocalsToViews: true,
		ErrorHandler:      ErrorHandler,
		BodyLimit:         bodyLimit,
		Immutable:         true,
	})
}

// ErrorHandler renders the error page for any error a handler returns.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	c.Status(code)
	if rerr := c.Render("error", fiber.Map{"status": code, "title": utils.StatusMessage(code)}); rerr != nil {
		log.Errorw("render error page", "error", rerr)
		return c.Status(code).SendString(utils.StatusMessage(code))
	}
	return nil
}

// DefaultAvatar serves the image every profile starts with.
func DefaultAvatar(c *fiber.Ctx) error {
	c.Type("png")
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.Send(defaultAvatar)
}

// Redirect answers a form POST with 302, like the browser expects.
func Redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}

// SafeNext keeps only local redirect targets.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006, 3:04 p.m.")
}

func isoDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func mediaPath(name string) string {
	if name == "" {
		return ""
	}
	return MediaURL + strings.TrimPrefix(name, "/")
}

func fieldError(errs form.Errors, name string) string {
	return errs[name]
}

func truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
