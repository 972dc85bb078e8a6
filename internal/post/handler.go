package post

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/blog-app/internal/comment"
	"github.com/wichananm65/blog-app/internal/form"
	"github.com/wichananm65/blog-app/internal/user"
	"github.com/wichananm65/blog-app/internal/web"
)

// Users finds the author behind a /user/:username listing.
type Users interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type Handler struct {
	service  *Service
	comments *comment.Service
	users    Users
	pageSize int
}

func NewHandler(service *Service, comments *comment.Service, users Users, pageSize int) *Handler {
	return &Handler{service: service, comments: comments, users: users, pageSize: pageSize}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/", h.home)
	app.Get("/articles-list", h.articles)
	app.Get("/atricles-list", h.articles)
	app.Get("/user/:username", h.userPosts)
	app.Get("/post/:id<int>", h.detail)
}

// RegisterProtectedRoutes puts auth in front of every route that needs a
// signed-in user.
func (h *Handler) RegisterProtectedRoutes(app fiber.Router, auth fiber.Handler) {
	app.Get("/post/new", auth, h.createForm)
	app.Post("/post/new", auth, h.create)
	app.Post("/post/:id<int>", auth, h.addComment)
	app.Get("/post/:id<int>/update", auth, h.updateForm)
	app.Post("/post/:id<int>/update", auth, h.update)
	app.Get("/post/:id<int>/delete", auth, h.confirmDelete)
	app.Post("/post/:id<int>/delete", auth, h.delete)
	app.Post("/like/:id<int>", auth, h.like)
}

func (h *Handler) home(c *fiber.Ctx) error {
	return h.renderList(c, "home", "")
}

func (h *Handler) articles(c *fiber.Ctx) error {
	return h.renderList(c, "articles_list", "Articles")
}

func (h *Handler) renderList(c *fiber.Ctx, view, title string) error {
	ctx := c.UserContext()
	number, err := web.PageNumber(c.Query("page"))
	if err != nil {
		return err
	}
	total, err := h.service.Count(ctx)
	if err != nil {
		return err
	}
	page, err := web.NewPage(number, h.pageSize, total)
	if err != nil {
		return err
	}
	posts, err := h.service.List(ctx, page.Offset(), page.Size)
	if err != nil {
		return err
	}
	return c.Render(view, fiber.Map{"title": title, "posts": posts, "page": page})
}

func (h *Handler) userPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, err := h.users.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}

	number, err := web.PageNumber(c.Query("page"))
	if err != nil {
		return err
	}
	total, err := h.service.CountByAuthor(ctx, author.ID)
	if err != nil {
		return err
	}
	page, err := web.NewPage(number, h.pageSize, total)
	if err != nil {
		return err
	}
	posts, err := h.service.ListByAuthor(ctx, author.ID, page.Offset(), page.Size)
	if err != nil {
		return err
	}
	author.Password = ""
	return c.Render("user_posts", fiber.Map{"title": author.Username, "author": author, "posts": posts, "page": page})
}

func (h *Handler) detail(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	return h.renderDetail(c, id, "", form.Errors{})
}

func (h *Handler) renderDetail(c *fiber.Ctx, id int, body string, errs form.Errors) error {
	ctx := c.UserContext()
	entry, err := h.service.Get(ctx, id)
	if err != nil {
		return mapError(err)
	}

	viewer, _ := user.GetUserIDFromCtx(c)
	liked, err := h.service.Likes(ctx, id, viewer)
	if err != nil {
		return err
	}
	comments, err := h.comments.List(ctx, id)
	if err != nil {
		return err
	}

	return c.Render("post_detail", fiber.Map{
		"title":      entry.Post.Title,
		"entry":      entry,
		"isLiked":    liked,
		"isOwner":    viewer != 0 && viewer == entry.Post.AuthorID,
		"canComment": viewer != 0,
		"comments":   comments,
		"body":       body,
		"errors":     errs,
	})
}

func (h *Handler) addComment(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}
	if _, err := h.service.Get(c.UserContext(), id); err != nil {
		return mapError(err)
	}

	payload := new(comment.Input)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}
	if _, err := h.comments.Create(c.UserContext(), id, userID, *payload); err != nil {
		if errs, ok := form.AsErrors(err); ok {
			return h.renderDetail(c, id, payload.Body, errs)
		}
		if errors.Is(err, comment.ErrPostNotFound) {
			return fiber.ErrNotFound
		}
		return err
	}
	return web.Redirect(c, "/post/"+strconv.Itoa(id))
}

func (h *Handler) createForm(c *fiber.Ctx) error {
	return c.Render("post_form", fiber.Map{"title": "New post", "legend": "Blog Post", "form": Input{}, "errors": form.Errors{}})
}

func (h *Handler) create(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return err
	}

	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}
	if _, err := h.service.Create(c.UserContext(), userID, *payload); err != nil {
		if errs, ok := form.AsErrors(err); ok {
			return c.Render("post_form", fiber.Map{"title": "New post", "legend": "Blog Post", "form": payload, "errors": errs})
		}
		return err
	}
	return web.Redirect(c, "/")
}

func (h *Handler) updateForm(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	entry, err := h.service.Authorize(c.UserContext(), id, userID)
	if err != nil {
		return mapError(err)
	}
	in := Input{Title: entry.Post.Title, Content: entry.Post.Content}
	return c.Render("post_form", fiber.Map{"title": "Update post", "legend": "Update Post", "form": in, "errors": form.Errors{}})
}

func (h *Handler) update(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return fiber.ErrBadRequest
	}
	if _, err := h.service.Update(c.UserContext(), id, userID, *payload); err != nil {
		if errs, ok := form.AsErrors(err); ok {
			return c.Render("post_form", fiber.Map{"title": "Update post", "legend": "Update Post", "form": payload, "errors": errs})
		}
		return mapError(err)
	}
	return web.Redirect(c, "/")
}

func (h *Handler) confirmDelete(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	entry, err := h.service.Authorize(c.UserContext(), id, userID)
	if err != nil {
		return mapError(err)
	}
	return c.Render("post_confirm_delete", fiber.Map{"title": "Delete post", "entry": entry})
}

func (h *Handler) delete(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), id, userID); err != nil {
		return mapError(err)
	}
	return web.Redirect(c, "/")
}

func (h *Handler) like(c *fiber.Ctx) error {
	userID, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	if _, err := h.service.ToggleLike(c.UserContext(), id, userID); err != nil {
		return mapError(err)
	}
	return web.Redirect(c, "/post/"+strconv.Itoa(id))
}

func postID(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.ErrNotFound
	case errors.Is(err, ErrForbidden):
		return fiber.ErrForbidden
	case errors.Is(err, ErrLoginRequired):
		return fiber.ErrUnauthorized
	default:
		return err
	}
}
