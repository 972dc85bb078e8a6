package comment

import (
	"context"
	"strings"
	"testing"

	"github.com/wichananm65/blog-app/internal/form"
	"github.com/wichananm65/blog-app/internal/user"
)

func newTestService(seed []Comment) *Service {
	authors := user.NewInMemoryRepository([]user.User{
		{ID: 1, Username: "ann", Password: "hash"},
		{ID: 2, Username: "bob", Password: "hash"},
	})
	return NewService(NewInMemoryRepository(seed), authors)
}

func TestCreate_AddsExactlyOne(t *testing.T) {
	svc := newTestService([]Comment{{ID: 1, PostID: 5, UserID: 2, Body: "first"}})
	ctx := context.Background()

	before, _ := svc.Count(ctx, 5)
	c, err := svc.Create(ctx, 5, 1, Input{Body: "  nice post  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	after, _ := svc.Count(ctx, 5)
	if after != before+1 {
		t.Fatalf("expected count %d, got %d", before+1, after)
	}
	if c.Body != "nice post" || c.PostID != 5 || c.UserID != 1 || c.DateAdded.IsZero() {
		t.Fatalf("unexpected comment %+v", c)
	}
	if other, _ := svc.Count(ctx, 6); other != 0 {
		t.Fatalf("other posts must not change, got %d", other)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	for _, body := range []string{"", "   \n", strings.Repeat("x", 501)} {
		_, err := svc.Create(ctx, 5, 1, Input{Body: body})
		errs, ok := form.AsErrors(err)
		if !ok || errs["body"] == "" {
			t.Fatalf("expected body error for %q, got %v", body, err)
		}
	}
	if _, err := svc.Create(ctx, 5, 1, Input{Body: strings.Repeat("x", 500)}); err != nil {
		t.Fatalf("500 characters is allowed: %v", err)
	}
	if n, _ := svc.Count(ctx, 5); n != 1 {
		t.Fatalf("rejected comments must not be stored, got %d", n)
	}
}

func TestList_NewestFirstWithAuthors(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	for i, author := range []int{1, 2, 1} {
		if _, err := svc.Create(ctx, 9, author, Input{Body: strings.Repeat("c", i+1)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	entries, err := svc.List(ctx, 9)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 comments, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Comment.ID <= entries[i].Comment.ID {
			t.Fatalf("comments not newest first: %d before %d", entries[i-1].Comment.ID, entries[i].Comment.ID)
		}
	}
	if entries[0].Author.Username != "ann" || entries[1].Author.Username != "bob" {
		t.Fatalf("authors not resolved: %+v", entries)
	}
	if entries[0].Author.Password != "" {
		t.Fatalf("author password hash must not leak to templates")
	}
}
