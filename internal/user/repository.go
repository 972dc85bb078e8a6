package user

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrInvalidResetLink   = errors.New("invalid password reset link")
)

// Repository persists users together with their profile. Create and Update
// always write both rows.
type Repository interface {
	GetByID(ctx context.Context, id int) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	ListByEmail(ctx context.Context, email string) ([]User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	SetPassword(ctx context.Context, id int, hash string) error
}

// InMemoryRepository is used for tests and local runs without a database.
type InMemoryRepository struct {
	mu            sync.RWMutex
	users         []User
	profiles      map[int]Profile
	nextID        int
	nextProfileID int
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users:         make([]User, 0, len(seed)),
		profiles:      make(map[int]Profile, len(seed)),
		nextID:        1,
		nextProfileID: 1,
	}

	maxID := 0
	for _, user := range seed {
		profile := user.Profile
		profile.UserID = user.ID
		if profile.Image == "" {
			profile.Image = DefaultImage
		}
		profile.ID = repo.nextProfileID
		repo.nextProfileID++
		repo.profiles[user.ID] = profile

		user.Profile = Profile{}
		repo.users = append(repo.users, user)
		if user.ID > maxID {
			maxID = user.ID
		}
	}

	repo.nextID = maxID + 1
	return repo
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ID == id {
			return r.withProfile(user), nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			return r.withProfile(user), nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) ListByEmail(_ context.Context, email string) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0)
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			out = append(out, r.withProfile(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return User{}, ErrUsernameTaken
		}
	}

	user.ID = r.nextID
	r.nextID++
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}

	profile := user.Profile
	profile.ID = r.nextProfileID
	profile.UserID = user.ID
	if profile.Image == "" {
		profile.Image = DefaultImage
	}
	r.nextProfileID++
	r.profiles[user.ID] = profile

	user.Profile = Profile{}
	r.users = append(r.users, user)
	return r.withProfile(user), nil
}

func (r *InMemoryRepository) Update(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, existing := range r.users {
		if existing.ID == user.ID {
			idx = i
			continue
		}
		if existing.Username == user.Username {
			return User{}, ErrUsernameTaken
		}
	}
	if idx < 0 {
		return User{}, ErrNotFound
	}

	stored := r.users[idx]
	stored.Username = user.Username
	stored.Email = user.Email
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	r.users[idx] = stored

	profile, ok := r.profiles[user.ID]
	if !ok {
		profile = Profile{ID: r.nextProfileID, UserID: user.ID}
		r.nextProfileID++
	}
	profile.Phone = user.Profile.Phone
	profile.Gender = user.Profile.Gender
	profile.BirthDate = user.Profile.BirthDate
	profile.Image = user.Profile.Image
	if profile.Image == "" {
		profile.Image = DefaultImage
	}
	r.profiles[user.ID] = profile

	return r.withProfile(stored), nil
}

func (r *InMemoryRepository) SetPassword(_ context.Context, id int, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID == id {
			r.users[i].Password = hash
			return nil
		}
	}
	return ErrNotFound
}

// profileCount reports how many profiles belong to userID.
func (r *InMemoryRepository) profileCount(userID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.profiles {
		if p.UserID == userID {
			n++
		}
	}
	return n
}

func (r *InMemoryRepository) withProfile(user User) User {
	user.Profile = r.profiles[user.ID]
	return user
}
