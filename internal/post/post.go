package post

import (
	"time"

	"github.com/wichananm65/blog-app/internal/user"
)

type Post struct {
	ID         int
	Title      string
	Content    string
	DatePosted time.Time
	AuthorID   int
}

// Entry is a post ready for display: its author and how many users like it.
type Entry struct {
	Post   Post
	Author user.User
	Likes  int
}
