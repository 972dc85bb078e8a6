package comment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound     = errors.New("comment not found")
	ErrPostNotFound = errors.New("post not found")
)

type Repository interface {
	// ListByPost returns the post's comments, newest first by id.
	ListByPost(ctx context.Context, postID int) ([]Comment, error)
	Create(ctx context.Context, c Comment) (Comment, error)
	CountByPost(ctx context.Context, postID int) (int, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu       sync.RWMutex
	comments []Comment
	nextID   int
}

func NewInMemoryRepository(seed []Comment) *InMemoryRepository {
	r := &InMemoryRepository{comments: make([]Comment, 0, len(seed)), nextID: 1}
	for _, c := range seed {
		r.comments = append(r.comments, c)
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	return r
}

func (r *InMemoryRepository) ListByPost(_ context.Context, postID int) ([]Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Comment, 0)
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, c Comment) (Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = r.nextID
	r.nextID++
	if c.DateAdded.IsZero() {
		c.DateAdded = time.Now().UTC()
	}
	r.comments = append(r.comments, c)
	return c, nil
}

func (r *InMemoryRepository) CountByPost(_ context.Context, postID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}
