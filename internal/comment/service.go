package comment

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/wichananm65/blog-app/internal/form"
	"github.com/wichananm65/blog-app/internal/user"
)

// Input is the comment form under a post.
type Input struct {
	Body string `form:"body" validate:"notblank,max=500"`
}

// Authors resolves comment authors for display.
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

// Create appends a comment by userID to the post. The caller has already
// checked that the post exists.
func (s *Service) Create(ctx context.Context, postID, userID int, in Input) (Comment, error) {
	if postID <= 0 {
		return Comment{}, ErrPostNotFound
	}
	if userID <= 0 {
		return Comment{}, user.ErrNotFound
	}
	in.Body = strings.TrimSpace(in.Body)
	if err := form.Validate(in).Err(); err != nil {
		return Comment{}, err
	}

	created, err := s.repo.Create(ctx, Comment{PostID: postID, UserID: userID, Body: in.Body})
	if err != nil {
		return Comment{}, err
	}
	log.WithContext(ctx).Infow("comment added", "post_id", postID, "user_id", userID, "comment_id", created.ID)
	return created, nil
}

// List returns the post's comments newest first, each with its author.
func (s *Service) List(ctx context.Context, postID int) ([]Entry, error) {
	comments, err := s.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	authors := make(map[int]user.User)
	out := make([]Entry, 0, len(comments))
	for _, c := range comments {
		a, ok := authors[c.UserID]
		if !ok {
			a, err = s.authors.GetByID(ctx, c.UserID)
			if err != nil {
				return nil, err
			}
			a.Password = ""
			authors[c.UserID] = a
		}
		out = append(out, Entry{Comment: c, Author: a})
	}
	return out, nil
}

func (s *Service) Count(ctx context.Context, postID int) (int, error) {
	return s.repo.CountByPost(ctx, postID)
}
