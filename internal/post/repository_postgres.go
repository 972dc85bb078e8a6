package post

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	postColumns = `SELECT id, title, content, date_posted, author_id FROM posts`

	countPostsQuery         = `SELECT COUNT(*) FROM posts`
	listPostsQuery          = postColumns + ` ORDER BY date_posted DESC, id DESC OFFSET $1 LIMIT $2`
	countPostsByAuthorQuery = `SELECT COUNT(*) FROM posts WHERE author_id = $1`
	listPostsByAuthorQuery  = postColumns + ` WHERE author_id = $1 ORDER BY date_posted DESC, id DESC OFFSET $2 LIMIT $3`
	getPostByIDQuery        = postColumns + ` WHERE id = $1`

	insertPostQuery = `
		INSERT INTO posts (title, content, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, date_posted
	`
	updatePostQuery = `
		UPDATE posts
		SET title = $1,
			content = $2
		WHERE id = $3
		RETURNING id, title, content, date_posted, author_id
	`
	deletePostQuery = `DELETE FROM posts WHERE id = $1`

	lockPostQuery   = `SELECT id FROM posts WHERE id = $1 FOR SHARE`
	unlikeQuery     = `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`
	likeQuery       = `INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	likedByQuery    = `SELECT COALESCE(array_agg(user_id ORDER BY user_id), '{}') FROM post_likes WHERE post_id = $1`
	likeCountsQuery = `
		SELECT post_id, COUNT(*)
		FROM post_likes
		WHERE post_id = ANY($1::int[])
		GROUP BY post_id
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, countPostsQuery)
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]Post, error) {
	return r.list(ctx, listPostsQuery, offset, limit)
}

func (r *PostgresRepository) CountByAuthor(ctx context.Context, authorID int) (int, error) {
	return r.count(ctx, countPostsByAuthorQuery, authorID)
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID, offset, limit int) ([]Post, error) {
	return r.list(ctx, listPostsByAuthorQuery, authorID, offset, limit)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Post, error) {
	var p Post
	err := r.db.QueryRowContext(ctx, getPostByIDQuery, id).Scan(&p.ID, &p.Title, &p.Content, &p.DatePosted, &p.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p Post) (Post, error) {
	if err := r.db.QueryRowContext(ctx, insertPostQuery, p.Title, p.Content, p.AuthorID).Scan(&p.ID, &p.DatePosted); err != nil {
		return Post{}, err
	}
	return p, nil
}

// Update changes title and content only; the author column is never written.
func (r *PostgresRepository) Update(ctx context.Context, p Post) (Post, error) {
	var out Post
	err := r.db.QueryRowContext(ctx, updatePostQuery, p.Title, p.Content, p.ID).
		Scan(&out.ID, &out.Title, &out.Content, &out.DatePosted, &out.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, deletePostQuery, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike removes the like if present and adds it otherwise, inside one
// transaction. The (post_id, user_id) primary key keeps the set free of
// duplicates.
func (r *PostgresRepository) ToggleLike(ctx context.Context, postID, userID int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var id int
	if err := tx.QueryRowContext(ctx, lockPostQuery, postID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}

	res, err := tx.ExecContext(ctx, unlikeQuery, postID, userID)
	if err != nil {
		return false, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	liked := false
	if removed == 0 {
		if _, err := tx.ExecContext(ctx, likeQuery, postID, userID); err != nil {
			return false, err
		}
		liked = true
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return liked, nil
}

func (r *PostgresRepository) LikedBy(ctx context.Context, postID int) ([]int, error) {
	var arr pq.Int64Array
	if err := r.db.QueryRowContext(ctx, likedByQuery, postID).Scan(&arr); err != nil {
		return nil, err
	}
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out, nil
}

func (r *PostgresRepository) LikeCounts(ctx context.Context, postIDs []int) (map[int]int, error) {
	out := make(map[int]int, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, likeCountsQuery, pq.Array(postIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.DatePosted, &p.AuthorID); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
