package user

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/wichananm65/blog-app/internal/web"
)

// helper to build an app with a simple "bootstrap" middleware that injects a
// jwt.Token into locals when the X-User-ID header is provided. This avoids
// pulling in the full jwtware middleware and keeps tests lightweight.
func makeAppWithUserHandler(h *Handler) *fiber.App {
	app := web.NewApp()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	h.RegisterPublicRoutes(app)
	h.RegisterProtectedRoutes(app, func(c *fiber.Ctx) error { return c.Next() })
	return app
}

func newTestHandler(t *testing.T, seed []User) (*Handler, *Service) {
	svc, _, _ := newTestService(seed)
	return NewHandler(svc, svc.tokens, NewAvatarStore(t.TempDir()), false), svc
}

func formBody(values url.Values) io.Reader {
	return strings.NewReader(values.Encode())
}

func TestRegisterRoute(t *testing.T) {
	h, svc := newTestHandler(t, nil)
	app := makeAppWithUserHandler(h)

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	for _, p := range []string{"/register", "/login", "/logout", "/accounts/profile", "/profile-update", "/change-password", "/password-reset-confirm/:uidb64/:token"} {
		if !routes[p] {
			t.Fatalf("expected route %s registered", p)
		}
	}

	// invalid form is shown again with the field error
	bad := url.Values{"username": {"jane"}, "email": {"jane@example.com"}, "password1": {"abc"}, "password2": {"abc"}}
	req := httptest.NewRequest("POST", "/register", formBody(bad))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for invalid form, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), "too short") {
		t.Fatalf("expected password error in body: %s", string(b))
	}

	good := url.Values{"username": {"jane"}, "email": {"jane@example.com"}, "password1": {"a-long-password"}, "password2": {"a-long-password"}}
	req2 := httptest.NewRequest("POST", "/register", formBody(good))
	req2.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusFound || res2.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %d %q", res2.StatusCode, res2.Header.Get("Location"))
	}
	if _, err := svc.GetByUsername(context.Background(), "jane"); err != nil {
		t.Fatalf("user not created: %v", err)
	}
}

func TestLoginRoute(t *testing.T) {
	h, _ := newTestHandler(t, []User{{ID: 7, Username: "sam", Password: mustHash(t, "correct-horse")}})
	app := makeAppWithUserHandler(h)

	wrong := url.Values{"username": {"sam"}, "password": {"nope"}}
	req := httptest.NewRequest("POST", "/login", formBody(wrong))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected form to be shown again, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), "Please enter a correct username and password") {
		t.Fatalf("expected login error: %s", string(b))
	}

	right := url.Values{"username": {"sam"}, "password": {"correct-horse"}, "next": {"/post/3"}}
	req2 := httptest.NewRequest("POST", "/login", formBody(right))
	req2.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusFound || res2.Header.Get("Location") != "/post/3" {
		t.Fatalf("expected redirect to next, got %d %q", res2.StatusCode, res2.Header.Get("Location"))
	}
	var session string
	for _, ck := range res2.Cookies() {
		if ck.Name == CookieName {
			session = ck.Value
			if !ck.HttpOnly {
				t.Fatalf("session cookie must be HttpOnly")
			}
		}
	}
	if session == "" {
		t.Fatalf("session cookie not set")
	}
	if _, err := h.tokens.Parse(session); err != nil {
		t.Fatalf("session cookie is not a valid token: %v", err)
	}

	// off-site next falls back to home
	evil := url.Values{"username": {"sam"}, "password": {"correct-horse"}, "next": {"https://evil.test"}}
	req3 := httptest.NewRequest("POST", "/login", formBody(evil))
	req3.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res3, _ := app.Test(req3)
	if res3.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect home, got %q", res3.Header.Get("Location"))
	}
}

func TestProfileRoute_RequiresUser(t *testing.T) {
	h, _ := newTestHandler(t, []User{{ID: 7, Username: "jenny", Email: "j@example.com", FirstName: "Jenny", LastName: "Test"}})
	app := makeAppWithUserHandler(h)

	res, err := app.Test(httptest.NewRequest("GET", "/accounts/profile", nil))
	if err != nil {
		t.Fatalf("profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected unauthorized status, got %d", res.StatusCode)
	}

	req := httptest.NewRequest("GET", "/accounts/profile", nil)
	req.Header.Set("X-User-ID", "7")
	res2, _ := app.Test(req)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res2.StatusCode)
	}
	b, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b), "jenny") || !strings.Contains(string(b), "Jenny Test") {
		t.Fatalf("unexpected body: %s", string(b))
	}
	if !strings.Contains(string(b), "/media/"+DefaultImage) {
		t.Fatalf("default avatar not shown: %s", string(b))
	}
}

func TestProfileUpdateRoute_WithAvatar(t *testing.T) {
	h, svc := newTestHandler(t, []User{{ID: 7, Username: "jenny", Email: "j@example.com"}})
	app := makeAppWithUserHandler(h)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	w.WriteField("username", "jenny")
	w.WriteField("email", "jenny@example.com")
	w.WriteField("first_name", "Jenny")
	w.WriteField("gender", "Female")
	w.WriteField("birth_date", "1999-12-31")
	fw, _ := w.CreateFormFile("profile_image", "me.png")
	fw.Write(pngHeader)
	w.Close()

	req := httptest.NewRequest("POST", "/profile-update", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-ID", "7")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("update request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusFound || res.Header.Get("Location") != "/accounts/profile" {
		t.Fatalf("expected redirect to profile, got %d", res.StatusCode)
	}

	u, _ := svc.GetByID(context.Background(), 7)
	if !strings.HasPrefix(u.Profile.Image, "users/") || u.Email != "jenny@example.com" || u.Profile.Gender != GenderFemale {
		t.Fatalf("profile not updated: %+v", u)
	}

	// a text file is refused inline
	body2 := &bytes.Buffer{}
	w2 := multipart.NewWriter(body2)
	w2.WriteField("username", "jenny")
	w2.WriteField("email", "jenny@example.com")
	fw2, _ := w2.CreateFormFile("profile_image", "notes.png")
	fw2.Write([]byte("just some text"))
	w2.Close()

	req2 := httptest.NewRequest("POST", "/profile-update", body2)
	req2.Header.Set("Content-Type", w2.FormDataContentType())
	req2.Header.Set("X-User-ID", "7")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected form redisplay, got %d", res2.StatusCode)
	}
	b, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b), "Upload a valid image") {
		t.Fatalf("expected avatar error: %s", string(b))
	}
}

func TestPasswordResetRoutes(t *testing.T) {
	h, _ := newTestHandler(t, []User{{ID: 8, Username: "lee", Email: "lee@example.com", Password: mustHash(t, "before-reset")}})
	app := makeAppWithUserHandler(h)

	req := httptest.NewRequest("POST", "/password-reset", formBody(url.Values{"email": {"someone@example.com"}}))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusFound || res.Header.Get("Location") != "/password-reset/done" {
		t.Fatalf("expected redirect to done page, got %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	res2, _ := app.Test(httptest.NewRequest("GET", "/password-reset-confirm/"+EncodeUID(8)+"/not-a-token", nil))
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res2.StatusCode)
	}
	b, _ := io.ReadAll(res2.Body)
	if !strings.Contains(string(b), "Password reset unsuccessful") {
		t.Fatalf("expected invalid link page: %s", string(b))
	}

	token, _ := h.tokens.IssueReset(User{ID: 8, Password: mustHash(t, "unrelated")})
	res3, _ := app.Test(httptest.NewRequest("GET", "/password-reset-confirm/"+EncodeUID(8)+"/"+token, nil))
	b3, _ := io.ReadAll(res3.Body)
	if !strings.Contains(string(b3), "Password reset unsuccessful") {
		t.Fatalf("token bound to another password must be refused")
	}
}

func uploadAvatar(t *testing.T, app *fiber.App, userID string) int {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	w.WriteField("username", "jenny")
	w.WriteField("email", "jenny@example.com")
	fw, _ := w.CreateFormFile("profile_image", "me.png")
	fw.Write(pngHeader)
	w.Close()

	req := httptest.NewRequest("POST", "/profile-update", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-User-ID", userID)
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("update request failed: %v", err)
	}
	return res.StatusCode
}

func TestProfileUpdateRoute_RemovesReplacedAvatar(t *testing.T) {
	h, svc := newTestHandler(t, []User{{ID: 7, Username: "jenny", Email: "j@example.com"}})
	app := makeAppWithUserHandler(h)
	ctx := context.Background()

	if code := uploadAvatar(t, app, "7"); code != fiber.StatusFound {
		t.Fatalf("first upload: expected redirect, got %d", code)
	}
	first, _ := svc.GetByID(ctx, 7)
	firstFile := filepath.Join(h.avatars.mediaDir, filepath.FromSlash(first.Profile.Image))
	if _, err := os.Stat(firstFile); err != nil {
		t.Fatalf("first avatar not stored: %v", err)
	}

	if code := uploadAvatar(t, app, "7"); code != fiber.StatusFound {
		t.Fatalf("second upload: expected redirect, got %d", code)
	}
	second, _ := svc.GetByID(ctx, 7)
	if second.Profile.Image == first.Profile.Image {
		t.Fatalf("avatar path should change on upload")
	}
	if _, err := os.Stat(firstFile); !os.IsNotExist(err) {
		t.Fatalf("replaced avatar still on disk: %v", err)
	}
	secondFile := filepath.Join(h.avatars.mediaDir, filepath.FromSlash(second.Profile.Image))
	if _, err := os.Stat(secondFile); err != nil {
		t.Fatalf("new avatar missing: %v", err)
	}
}
