package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/blog-app/internal/form"
	"github.com/wichananm65/blog-app/internal/mail"
)

const minPasswordLength = 8

type RegisterInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"required,email,max=254"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required"`
}

// ProfileInput carries both halves of the profile page: the user's own
// columns and the profile row.
type ProfileInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Email     string `form:"email" validate:"required,email,max=254"`
	Phone     string `form:"phone_number" validate:"max=12"`
	Gender    string `form:"gender" validate:"omitempty,oneof=Male Female"`
	BirthDate string `form:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Image     string `form:"-"`
}

type PasswordChangeInput struct {
	OldPassword  string `form:"old_password" validate:"required"`
	NewPassword1 string `form:"new_password1" validate:"required"`
	NewPassword2 string `form:"new_password2" validate:"required"`
}

type SetPasswordInput struct {
	NewPassword1 string `form:"new_password1" validate:"required"`
	NewPassword2 string `form:"new_password2" validate:"required"`
}

type resetRequest struct {
	Email string `form:"email" validate:"required,email"`
}

type Service struct {
	repo    Repository
	tokens  *Tokens
	mailer  mail.Mailer
	siteURL string
	cost    int
}

func NewService(repo Repository, tokens *Tokens, mailer mail.Mailer, siteURL string) *Service {
	return &Service{
		repo:    repo,
		tokens:  tokens,
		mailer:  mailer,
		siteURL: strings.TrimRight(siteURL, "/"),
		cost:    bcrypt.DefaultCost,
	}
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Register creates the user and its profile. Validation failures come back
// as form.Errors.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	errs := form.Validate(in)
	if _, bad := errs["username"]; !bad {
		if err := s.usernameFree(ctx, in.Username, 0); err != nil {
			if !errors.Is(err, ErrUsernameTaken) {
				return User{}, err
			}
			errs.Add("username", "A user with that username already exists.")
		}
	}
	checkNewPassword(errs, "password2", in.Password1, in.Password2, in.Username)
	if err := errs.Err(); err != nil {
		return User{}, err
	}

	hashed, err := s.hash(in.Password1)
	if err != nil {
		return User{}, err
	}
	created, err := s.repo.Create(ctx, User{
		Username: in.Username,
		Email:    in.Email,
		Password: hashed,
		Profile:  Profile{Image: DefaultImage},
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return User{}, form.Errors{"username": "A user with that username already exists."}
		}
		return User{}, err
	}

	log.WithContext(ctx).Infow("user registered", "user_id", created.ID, "username", created.Username)
	return sanitizeUser(created), nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

// UpdateProfile saves the user form and the profile form together. An empty
// in.Image keeps the current avatar.
func (s *Service) UpdateProfile(ctx context.Context, id int, in ProfileInput) (User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	errs := form.Validate(in)
	if _, bad := errs["username"]; !bad && in.Username != existing.Username {
		if err := s.usernameFree(ctx, in.Username, id); err != nil {
			if !errors.Is(err, ErrUsernameTaken) {
				return User{}, err
			}
			errs.Add("username", "A user with that username already exists.")
		}
	}
	var birth *time.Time
	if _, bad := errs["birth_date"]; !bad && in.BirthDate != "" {
		t, err := time.Parse("2006-01-02", in.BirthDate)
		if err != nil {
			errs.Add("birth_date", "Enter a valid date.")
		} else {
			birth = &t
		}
	}
	if err := errs.Err(); err != nil {
		return User{}, err
	}

	existing.Username = in.Username
	existing.FirstName = strings.TrimSpace(in.FirstName)
	existing.LastName = strings.TrimSpace(in.LastName)
	existing.Email = in.Email
	existing.Profile.Phone = strings.TrimSpace(in.Phone)
	existing.Profile.Gender = in.Gender
	existing.Profile.BirthDate = birth
	if in.Image != "" {
		existing.Profile.Image = in.Image
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return User{}, form.Errors{"username": "A user with that username already exists."}
		}
		return User{}, err
	}
	return sanitizeUser(updated), nil
}

// ChangePassword checks the old password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, id int, in PasswordChangeInput) (User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	errs := form.Validate(in)
	if _, bad := errs["old_password"]; !bad {
		if bcrypt.CompareHashAndPassword([]byte(existing.Password), []byte(in.OldPassword)) != nil {
			errs.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
		}
	}
	checkNewPassword(errs, "new_password2", in.NewPassword1, in.NewPassword2, existing.Username)
	if err := errs.Err(); err != nil {
		return User{}, err
	}

	if err := s.setPassword(ctx, id, in.NewPassword1); err != nil {
		return User{}, err
	}
	log.WithContext(ctx).Infow("password changed", "user_id", id)
	return sanitizeUser(existing), nil
}

// RequestPasswordReset mails a reset link to every account registered with
// email. Unknown addresses are not reported to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	in := resetRequest{Email: strings.TrimSpace(email)}
	if err := form.Validate(in).Err(); err != nil {
		return err
	}

	users, err := s.repo.ListByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	for _, u := range users {
		token, err := s.tokens.IssueReset(u)
		if err != nil {
			return err
		}
		link := fmt.Sprintf("%s/password-reset-confirm/%s/%s", s.siteURL, EncodeUID(u.ID), token)
		msg := mail.Message{
			To:      u.Email,
			Subject: "Password reset",
			Body: fmt.Sprintf("You're receiving this email because you requested a password reset for your user account.\n\n"+
				"Please go to the following page and choose a new password:\n%s\n\n"+
				"Your username, in case you've forgotten: %s\n", link, u.Username),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			return fmt.Errorf("send reset mail: %w", err)
		}
	}
	return nil
}

// CheckResetLink resolves a reset link to its user.
func (s *Service) CheckResetLink(ctx context.Context, uidb64, token string) (User, error) {
	id, err := DecodeUID(uidb64)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidResetLink
		}
		return User{}, err
	}
	if err := s.tokens.CheckReset(u, token); err != nil {
		return User{}, err
	}
	return u, nil
}

// ResetPassword sets a new password through a reset link. The link stops
// working afterwards because the password hash it was bound to is gone.
func (s *Service) ResetPassword(ctx context.Context, uidb64, token string, in SetPasswordInput) error {
	u, err := s.CheckResetLink(ctx, uidb64, token)
	if err != nil {
		return err
	}

	errs := form.Validate(in)
	checkNewPassword(errs, "new_password2", in.NewPassword1, in.NewPassword2, u.Username)
	if err := errs.Err(); err != nil {
		return err
	}

	if err := s.setPassword(ctx, u.ID, in.NewPassword1); err != nil {
		return err
	}
	log.WithContext(ctx).Infow("password reset", "user_id", u.ID)
	return nil
}

func (s *Service) setPassword(ctx context.Context, id int, password string) error {
	hashed, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, hashed)
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *Service) usernameFree(ctx context.Context, username string, self int) error {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if u.ID == self {
		return nil
	}
	return ErrUsernameTaken
}

// checkNewPassword applies the password rules and reports failures on field.
func checkNewPassword(errs form.Errors, field, password1, password2, username string) {
	if password1 == "" || password2 == "" {
		return
	}
	if password1 != password2 {
		errs.Add(field, "The two password fields didn't match.")
		return
	}
	if len([]rune(password1)) < minPasswordLength {
		errs.Add(field, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
		return
	}
	if isNumeric(password1) {
		errs.Add(field, "This password is entirely numeric.")
		return
	}
	if username != "" && strings.EqualFold(password1, username) {
		errs.Add(field, "The password is too similar to the username.")
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
