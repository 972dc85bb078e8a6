package user

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// CookieName holds the signed session token.
const CookieName = "token"

const currentUserKey = "currentUser"

// GetUserIDFromCtx extracts the user_id claim from the JWT token stored
// in `c.Locals("user")`. Every feature package reads the acting user
// through it.
func GetUserIDFromCtx(c *fiber.Ctx) (int, error) {
	u := c.Locals("user")
	if u == nil {
		return 0, fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return 0, fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fiber.ErrUnauthorized
	}
	id, err := claimUserID(claims)
	if err != nil {
		return 0, fiber.ErrUnauthorized
	}
	return id, nil
}

// CurrentUser returns the user loaded by Identify, if any.
func CurrentUser(c *fiber.Ctx) (User, bool) {
	u, ok := c.Locals(currentUserKey).(*User)
	if !ok || u == nil {
		return User{}, false
	}
	return *u, true
}

// Identify reads the session cookie on every request. A valid token puts
// the jwt in c.Locals("user") and the loaded user in c.Locals("currentUser")
// so public pages can tell who is browsing. Bad tokens are ignored here;
// protected routes reject them later.
func Identify(tokens *Tokens, service *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(CookieName)
		if raw == "" {
			return c.Next()
		}
		tok, err := tokens.ParseSession(raw)
		if err != nil {
			return c.Next()
		}
		c.Locals("user", tok)

		id, err := GetUserIDFromCtx(c)
		if err != nil {
			return c.Next()
		}
		u, err := service.GetByID(c.UserContext(), id)
		if err != nil {
			return c.Next()
		}
		u = sanitizeUser(u)
		c.Locals(currentUserKey, &u)
		return c.Next()
	}
}

// HasSession reports whether c.Locals("user") holds a session token, as
// opposed to any other token signed with the same key.
func HasSession(c *fiber.Ctx) bool {
	tok, _ := c.Locals("user").(*jwt.Token)
	return isSession(tok)
}

func setSessionCookie(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals("user", nil)
	c.Locals(currentUserKey, nil)
}
