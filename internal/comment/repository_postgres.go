package comment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listCommentsQuery = `
		SELECT id, post_id, user_id, body, date_added
		FROM comments
		WHERE post_id = $1
		ORDER BY id DESC
	`
	insertCommentQuery = `
		INSERT INTO comments (post_id, user_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, date_added
	`
	countCommentsQuery = `SELECT COUNT(*) FROM comments WHERE post_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByPost(ctx context.Context, postID int) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, listCommentsQuery, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Comment, 0)
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.DateAdded); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, c Comment) (Comment, error) {
	err := r.db.QueryRowContext(ctx, insertCommentQuery, c.PostID, c.UserID, c.Body).Scan(&c.ID, &c.DateAdded)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Comment{}, ErrPostNotFound
		}
		return Comment{}, err
	}
	return c, nil
}

func (r *PostgresRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countCommentsQuery, postID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
