package user

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/wichananm65/blog-app/internal/form"
	"github.com/wichananm65/blog-app/internal/web"
)

const loginFailed = "Please enter a correct username and password. Note that both fields may be case-sensitive."

type Handler struct {
	service *Service
	tokens  *Tokens
	avatars *AvatarStore
	secure  bool
}

type loginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

type resetRequestForm struct {
	Email string `form:"email"`
}

// NewHandler serves the account pages. secure marks the session cookie
// Secure, which production deployments behind TLS want.
func NewHandler(service *Service, tokens *Tokens, avatars *AvatarStore, secure bool) *Handler {
	return &Handler{service: service, tokens: tokens, avatars: avatars, secure: secure}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/register", h.registerForm)
	app.Post("/register", h.register)
	app.Get("/login", h.loginForm)
	app.Post("/login", h.login)
	app.Get("/logout", h.logout)
	app.Post("/logout", h.logout)

	app.Get("/password-reset", h.passwordResetForm)
	app.Post("/password-reset", h.passwordReset)
	app.Get("/password-reset/done", h.passwordResetDone)
	app.Get("/password-reset-confirm/:uidb64/:token", h.passwordResetConfirmForm)
	app.Post("/password-reset-confirm/:uidb64/:token", h.passwordResetConfirm)
	app.Get("/password-reset-complete", h.passwordResetComplete)
}

func (h *Handler) RegisterProtectedRoutes(app fiber.Router, auth fiber.Handler) {
	app.Get("/accounts/profile", auth, h.profile)
	app.Get("/profile-update", auth, h.profileUpdateForm)
	app.Post("/profile-update", auth, h.profileUpdate)
	app.Get("/change-password", auth, h.changePasswordForm)
	app.Post("/change-password", auth, h.changePassword)
}

func (h *Handler) registerForm(c *fiber.Ctx) error {
	return c.Render("register", fiber.Map{"title": "Register", "form": RegisterInput{}, "errors": form.Errors{}})
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(RegisterInput)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}

	created, err := h.service.Register(c.UserContext(), *payload)
	if err != nil {
		if errs, ok := form.AsErrors(err); ok {
			payload.Password1, payload.Password2 = "", ""
			return c.Render("register", fiber.Map{"title": "Register", "form": payload, "errors": errs})
		}
		return err
	}

	web.Flash(c, web.LevelSuccess, fmt.Sprintf("Account created for %s!", created.Username))
	return web.Redirect(c, "/")
}

func (h *Handler) loginForm(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{"title": "Login", "next": c.Query("next"), "username": "", "errors": form.Errors{}})
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}

	user, err := h.service.Authenticate(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return c.Render("login", fiber.Map{
				"title":    "Login",
				"next":     payload.Next,
				"username": payload.Username,
				"errors":   form.Errors{form.NonField: loginFailed},
			})
		}
		return err
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	log.Infow("user logged in", "user_id", user.ID)
	return web.Redirect(c, web.SafeNext(payload.Next, "/"))
}

func (h *Handler) logout(c *fiber.Ctx) error {
	clearSessionCookie(c)
	return c.Render("logout", fiber.Map{"title": "Logout"})
}

func (h *Handler) profile(c *fiber.Ctx) error {
	u, err := h.actingUser(c)
	if err != nil {
		return err
	}
	return c.Render("profile", fiber.Map{"title": "Profile", "profileUser": u})
}

func (h *Handler) profileUpdateForm(c *fiber.Ctx) error {
	u, err := h.actingUser(c)
	if err != nil {
		return err
	}
	return c.Render("profile_update", fiber.Map{"title": "Profile update", "form": profileForm(u), "errors": form.Errors{}})
}

func (h *Handler) profileUpdate(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return err
	}

	payload := new(ProfileInput)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}
	rerender := func(errs form.Errors) error {
		return c.Render("profile_update", fiber.Map{"title": "Profile update", "form": payload, "errors": errs})
	}

	previous := ""
	if fh, ferr := c.FormFile("profile_image"); ferr == nil && fh != nil && fh.Size > 0 {
		current, err := h.service.GetByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		previous = current.Profile.Image

		path, err := h.avatars.Save(fh)
		switch {
		case errors.Is(err, ErrAvatarTooLarge):
			return rerender(form.Errors{"profile_image": "Image file too large ( > 5mb )"})
		case errors.Is(err, ErrAvatarType):
			return rerender(form.Errors{"profile_image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image."})
		case err != nil:
			return err
		}
		payload.Image = path
	}

	if _, err := h.service.UpdateProfile(c.UserContext(), userID, *payload); err != nil {
		if payload.Image != "" {
			h.avatars.Remove(payload.Image)
			payload.Image = ""
		}
		if errs, ok := form.AsErrors(err); ok {
			return rerender(errs)
		}
		if errors.Is(err, ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	if payload.Image != "" && previous != payload.Image {
		h.avatars.Remove(previous)
	}

	web.Flash(c, web.LevelSuccess, "Your profile is updated successfully!")
	return web.Redirect(c, "/accounts/profile")
}

func (h *Handler) changePasswordForm(c *fiber.Ctx) error {
	return c.Render("change_password", fiber.Map{"title": "Change password", "errors": form.Errors{}})
}

func (h *Handler) changePassword(c *fiber.Ctx) error {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return err
	}

	payload := new(PasswordChangeInput)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}

	u, err := h.service.ChangePassword(c.UserContext(), userID, *payload)
	if err != nil {
		if errs, ok := form.AsErrors(err); ok {
			return c.Render("change_password", fiber.Map{"title": "Change password", "errors": errs})
		}
		if errors.Is(err, ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}

	// keep the browser signed in after the change
	if err := h.startSession(c, u); err != nil {
		return err
	}
	web.Flash(c, web.LevelSuccess, "Your password was changed.")
	return web.Redirect(c, "/")
}

func (h *Handler) passwordResetForm(c *fiber.Ctx) error {
	return c.Render("password_reset", fiber.Map{"title": "Password reset", "email": "", "errors": form.Errors{}})
}

func (h *Handler) passwordReset(c *fiber.Ctx) error {
	payload := new(resetRequestForm)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}

	if err := h.service.RequestPasswordReset(c.UserContext(), payload.Email); err != nil {
		if errs, ok := form.AsErrors(err); ok {
			return c.Render("password_reset", fiber.Map{"title": "Password reset", "email": payload.Email, "errors": errs})
		}
		return err
	}
	return web.Redirect(c, "/password-reset/done")
}

func (h *Handler) passwordResetDone(c *fiber.Ctx) error {
	return c.Render("password_reset_done", fiber.Map{"title": "Password reset"})
}

func (h *Handler) passwordResetConfirmForm(c *fiber.Ctx) error {
	_, err := h.service.CheckResetLink(c.UserContext(), c.Params("uidb64"), c.Params("token"))
	if err != nil && !errors.Is(err, ErrInvalidResetLink) {
		return err
	}
	return c.Render("password_reset_confirm", fiber.Map{"title": "Password reset", "validLink": err == nil, "errors": form.Errors{}})
}

func (h *Handler) passwordResetConfirm(c *fiber.Ctx) error {
	payload := new(SetPasswordInput)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}

	err := h.service.ResetPassword(c.UserContext(), c.Params("uidb64"), c.Params("token"), *payload)
	switch {
	case err == nil:
		return web.Redirect(c, "/password-reset-complete")
	case errors.Is(err, ErrInvalidResetLink):
		return c.Render("password_reset_confirm", fiber.Map{"title": "Password reset", "validLink": false, "errors": form.Errors{}})
	}
	if errs, ok := form.AsErrors(err); ok {
		return c.Render("password_reset_confirm", fiber.Map{"title": "Password reset", "validLink": true, "errors": errs})
	}
	return err
}

func (h *Handler) passwordResetComplete(c *fiber.Ctx) error {
	return c.Render("password_reset_complete", fiber.Map{"title": "Password reset"})
}

func (h *Handler) startSession(c *fiber.Ctx, u User) error {
	token, exp, err := h.tokens.Issue(u)
	if err != nil {
		return err
	}
	setSessionCookie(c, token, exp, h.secure)
	return nil
}

func (h *Handler) actingUser(c *fiber.Ctx) (User, error) {
	userID, err := GetUserIDFromCtx(c)
	if err != nil {
		return User{}, err
	}
	u, err := h.service.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, fiber.ErrNotFound
		}
		return User{}, err
	}
	return sanitizeUser(u), nil
}

func profileForm(u User) ProfileInput {
	in := ProfileInput{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Profile.Phone,
		Gender:    u.Profile.Gender,
	}
	if u.Profile.BirthDate != nil {
		in.BirthDate = u.Profile.BirthDate.Format("2006-01-02")
	}
	return in
}
