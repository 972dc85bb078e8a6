package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	selectUserColumns = `
		SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.password, u.date_joined,
			COALESCE(p.id, 0), COALESCE(p.phone_number, ''), COALESCE(p.gender, ''), p.birth_date,
			COALESCE(p.profile_image, 'default-avatar.png')
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
	`
	getUserByIDQuery       = selectUserColumns + ` WHERE u.id = $1`
	getUserByUsernameQuery = selectUserColumns + ` WHERE u.username = $1`
	listUsersByEmailQuery  = selectUserColumns + ` WHERE lower(u.email) = lower($1) ORDER BY u.id`

	insertUserQuery = `
		INSERT INTO users (username, email, first_name, last_name, password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, date_joined
	`
	insertProfileQuery = `
		INSERT INTO profiles (user_id, phone_number, gender, birth_date, profile_image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	updateUserQuery = `
		UPDATE users
		SET username = $1,
			email = $2,
			first_name = $3,
			last_name = $4
		WHERE id = $5
	`
	upsertProfileQuery = `
		INSERT INTO profiles (user_id, phone_number, gender, birth_date, profile_image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET phone_number = EXCLUDED.phone_number,
			gender = EXCLUDED.gender,
			birth_date = EXCLUDED.birth_date,
			profile_image = EXCLUDED.profile_image
		RETURNING id
	`
	setPasswordQuery = `UPDATE users SET password = $1 WHERE id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (User, error) {
	return r.getOne(ctx, getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, getUserByUsernameQuery, username)
}

func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, listUsersByEmailQuery, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Create inserts the user and its profile in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, insertUserQuery,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password,
	).Scan(&user.ID, &user.DateJoined)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}

	user.Profile.UserID = user.ID
	if user.Profile.Image == "" {
		user.Profile.Image = DefaultImage
	}
	if err := saveProfile(ctx, tx, insertProfileQuery, &user.Profile); err != nil {
		return User{}, err
	}

	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return user, nil
}

// Update saves the user's own columns and upserts the profile with them.
func (r *PostgresRepository) Update(ctx context.Context, user User) (User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateUserQuery,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return User{}, ErrNotFound
	}

	user.Profile.UserID = user.ID
	if user.Profile.Image == "" {
		user.Profile.Image = DefaultImage
	}
	if err := saveProfile(ctx, tx, upsertProfileQuery, &user.Profile); err != nil {
		return User{}, err
	}

	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return r.GetByID(ctx, user.ID)
}

func (r *PostgresRepository) SetPassword(ctx context.Context, id int, hash string) error {
	res, err := r.db.ExecContext(ctx, setPasswordQuery, hash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func saveProfile(ctx context.Context, tx *sql.Tx, query string, p *Profile) error {
	birth := sql.NullTime{}
	if p.BirthDate != nil {
		birth = sql.NullTime{Time: *p.BirthDate, Valid: true}
	}
	return tx.QueryRowContext(ctx, query, p.UserID, p.Phone, p.Gender, birth, p.Image).Scan(&p.ID)
}

func scanUser(scanner rowScanner) (User, error) {
	var (
		user  User
		birth sql.NullTime
	)
	err := scanner.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Password,
		&user.DateJoined,
		&user.Profile.ID,
		&user.Profile.Phone,
		&user.Profile.Gender,
		&birth,
		&user.Profile.Image,
	)
	if err != nil {
		return User{}, err
	}

	user.Profile.UserID = user.ID
	if birth.Valid {
		t := birth.Time
		user.Profile.BirthDate = &t
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
