package comment

import (
	"time"

	"github.com/wichananm65/blog-app/internal/user"
)

type Comment struct {
	ID        int
	PostID    int
	UserID    int
	Body      string
	DateAdded time.Time
}

// Entry is a comment with its author, as shown under a post.
type Entry struct {
	Comment Comment
	Author  user.User
}
