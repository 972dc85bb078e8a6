package comment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgresListByPost_NewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "post_id", "user_id", "body", "date_added"}).
		AddRow(4, 2, 1, "newer", now).
		AddRow(3, 2, 1, "older", now.Add(-time.Minute))
	mock.ExpectQuery("ORDER BY id DESC").WithArgs(2).WillReturnRows(rows)

	out, err := repo.ListByPost(context.Background(), 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 || out[0].ID != 4 || out[1].Body != "older" {
		t.Fatalf("unexpected comments %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("INSERT INTO comments").WithArgs(2, 1, "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date_added"}).AddRow(11, time.Now()))
	c, err := repo.Create(context.Background(), Comment{PostID: 2, UserID: 1, Body: "hello"})
	if err != nil || c.ID != 11 {
		t.Fatalf("unexpected result %+v %v", c, err)
	}

	mock.ExpectQuery("INSERT INTO comments").WithArgs(99, 1, "hello").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	if _, err := repo.Create(context.Background(), Comment{PostID: 99, UserID: 1, Body: "hello"}); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}

	mock.ExpectQuery("SELECT COUNT").WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	if n, err := repo.CountByPost(context.Background(), 2); err != nil || n != 1 {
		t.Fatalf("unexpected count %d %v", n, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
