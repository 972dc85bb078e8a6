package post

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("post not found")
	ErrForbidden     = errors.New("only the author may change this post")
	ErrLoginRequired = errors.New("login required")
)

// Repository stores posts and their like-sets. Listings are ordered newest
// first by date posted.
type Repository interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]Post, error)
	CountByAuthor(ctx context.Context, authorID int) (int, error)
	ListByAuthor(ctx context.Context, authorID, offset, limit int) ([]Post, error)
	GetByID(ctx context.Context, id int) (Post, error)
	Create(ctx context.Context, p Post) (Post, error)
	Update(ctx context.Context, p Post) (Post, error)
	Delete(ctx context.Context, id int) error

	// ToggleLike flips userID's membership in the post's like-set and
	// reports whether the user likes the post afterwards.
	ToggleLike(ctx context.Context, postID, userID int) (bool, error)
	LikedBy(ctx context.Context, postID int) ([]int, error)
	LikeCounts(ctx context.Context, postIDs []int) (map[int]int, error)
}

// InMemoryRepository is used for tests and local runs without a database.
type InMemoryRepository struct {
	mu     sync.RWMutex
	posts  []Post
	likes  map[int]map[int]struct{}
	nextID int
}

func NewInMemoryRepository(seed []Post) *InMemoryRepository {
	repo := &InMemoryRepository{
		posts:  make([]Post, 0, len(seed)),
		likes:  make(map[int]map[int]struct{}),
		nextID: 1,
	}
	for _, p := range seed {
		repo.posts = append(repo.posts, p)
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
	}
	return repo
}

func (r *InMemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.posts), nil
}

func (r *InMemoryRepository) List(_ context.Context, offset, limit int) ([]Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return window(newestFirst(r.posts, nil), offset, limit), nil
}

func (r *InMemoryRepository) CountByAuthor(_ context.Context, authorID int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.posts {
		if p.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) ListByAuthor(_ context.Context, authorID, offset, limit int) ([]Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byAuthor := func(p Post) bool { return p.AuthorID == authorID }
	return window(newestFirst(r.posts, byAuthor), offset, limit), nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, p Post) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.nextID
	r.nextID++
	if p.DatePosted.IsZero() {
		p.DatePosted = time.Now().UTC()
	}
	r.posts = append(r.posts, p)
	return p, nil
}

func (r *InMemoryRepository) Update(_ context.Context, p Post) (Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.posts {
		if existing.ID == p.ID {
			existing.Title = p.Title
			existing.Content = p.Content
			r.posts[i] = existing
			return existing, nil
		}
	}
	return Post{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.posts {
		if p.ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			delete(r.likes, id)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) ToggleLike(_ context.Context, postID, userID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for _, p := range r.posts {
		if p.ID == postID {
			found = true
			break
		}
	}
	if !found {
		return false, ErrNotFound
	}

	set, ok := r.likes[postID]
	if !ok {
		set = make(map[int]struct{})
		r.likes[postID] = set
	}
	if _, liked := set[userID]; liked {
		delete(set, userID)
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}

func (r *InMemoryRepository) LikedBy(_ context.Context, postID int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int, 0, len(r.likes[postID]))
	for id := range r.likes[postID] {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

func (r *InMemoryRepository) LikeCounts(_ context.Context, postIDs []int) (map[int]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]int, len(postIDs))
	for _, id := range postIDs {
		if n := len(r.likes[id]); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func newestFirst(posts []Post, keep func(Post) bool) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DatePosted.Equal(out[j].DatePosted) {
			return out[i].ID > out[j].ID
		}
		return out[i].DatePosted.After(out[j].DatePosted)
	})
	return out
}

func window(posts []Post, offset, limit int) []Post {
	if offset >= len(posts) {
		return []Post{}
	}
	end := offset + limit
	if limit <= 0 || end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}
