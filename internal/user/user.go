package user

import (
	"strings"
	"time"
)

// DefaultImage is the avatar every profile starts with.
const DefaultImage = "default-avatar.png"

// Gender choices accepted on the profile form.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

type User struct {
	ID         int
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Password   string
	DateJoined time.Time
	Profile    Profile
}

// Profile extends a User one to one. It is created together with the user
// and written again on every user save.
type Profile struct {
	ID        int
	UserID    int
	Phone     string
	Gender    string
	BirthDate *time.Time
	Image     string
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func sanitizeUser(user User) User {
	user.Password = ""
	return user
}
