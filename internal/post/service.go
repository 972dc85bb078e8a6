package post

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/wichananm65/blog-app/internal/form"
	"github.com/wichananm65/blog-app/internal/user"
)

// Input is the create/update post form.
type Input struct {
	Title   string `form:"title" validate:"notblank,max=100"`
	Content string `form:"content" validate:"notblank"`
}

// Authors resolves post authors for display.
type Authors interface {
	GetByID(ctx context.Context, id int) (user.User, error)
}

type Service struct {
	repo    Repository
	authors Authors
}

func NewService(repo Repository, authors Authors) *Service {
	return &Service{repo: repo, authors: authors}
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// List returns one page of all posts, newest first.
func (s *Service) List(ctx context.Context, offset, limit int) ([]Entry, error) {
	posts, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.entries(ctx, posts)
}

func (s *Service) CountByAuthor(ctx context.Context, authorID int) (int, error) {
	return s.repo.CountByAuthor(ctx, authorID)
}

func (s *Service) ListByAuthor(ctx context.Context, authorID, offset, limit int) ([]Entry, error) {
	posts, err := s.repo.ListByAuthor(ctx, authorID, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.entries(ctx, posts)
}

func (s *Service) Get(ctx context.Context, id int) (Entry, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	out, err := s.entries(ctx, []Post{p})
	if err != nil {
		return Entry{}, err
	}
	return out[0], nil
}

// Create stores a post written by authorID.
func (s *Service) Create(ctx context.Context, authorID int, in Input) (Post, error) {
	in = clean(in)
	if err := form.Validate(in).Err(); err != nil {
		return Post{}, err
	}

	created, err := s.repo.Create(ctx, Post{Title: in.Title, Content: in.Content, AuthorID: authorID})
	if err != nil {
		return Post{}, err
	}
	log.WithContext(ctx).Infow("post created", "post_id", created.ID, "author_id", authorID)
	return created, nil
}

// Authorize loads the post and checks that actorID wrote it.
func (s *Service) Authorize(ctx context.Context, id, actorID int) (Entry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.Post.AuthorID != actorID {
		return Entry{}, ErrForbidden
	}
	return e, nil
}

// Update rewrites title and content. Only the author may do so and the
// author never changes.
func (s *Service) Update(ctx context.Context, id, actorID int, in Input) (Post, error) {
	if _, err := s.Authorize(ctx, id, actorID); err != nil {
		return Post{}, err
	}

	in = clean(in)
	if err := form.Validate(in).Err(); err != nil {
		return Post{}, err
	}
	return s.repo.Update(ctx, Post{ID: id, Title: in.Title, Content: in.Content})
}

func (s *Service) Delete(ctx context.Context, id, actorID int) error {
	if _, err := s.Authorize(ctx, id, actorID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.WithContext(ctx).Infow("post deleted", "post_id", id, "author_id", actorID)
	return nil
}

// ToggleLike adds userID to the post's like-set or takes them out of it.
func (s *Service) ToggleLike(ctx context.Context, id, userID int) (bool, error) {
	if userID <= 0 {
		return false, ErrLoginRequired
	}
	return s.repo.ToggleLike(ctx, id, userID)
}

// Likes reports whether userID likes the post. Anonymous visitors pass 0.
func (s *Service) Likes(ctx context.Context, id, userID int) (bool, error) {
	if userID <= 0 {
		return false, nil
	}
	ids, err := s.repo.LikedBy(ctx, id)
	if err != nil {
		return false, err
	}
	for _, v := range ids {
		if v == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) entries(ctx context.Context, posts []Post) ([]Entry, error) {
	ids := make([]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := s.repo.LikeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	authors := make(map[int]user.User)
	out := make([]Entry, 0, len(posts))
	for _, p := range posts {
		a, ok := authors[p.AuthorID]
		if !ok {
			a, err = s.authors.GetByID(ctx, p.AuthorID)
			if err != nil {
				return nil, err
			}
			a.Password = ""
			authors[p.AuthorID] = a
		}
		out = append(out, Entry{Post: p, Author: a, Likes: counts[p.ID]})
	}
	return out, nil
}

func clean(in Input) Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	return in
}
