package web

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestPageNumber(t *testing.T) {
	cases := map[string]int{"": 1, "3": 3, "last": lastPage}
	for raw, want := range cases {
		got, err := PageNumber(raw)
		if err != nil || got != want {
			t.Fatalf("PageNumber(%q) = %d, %v; want %d", raw, got, err, want)
		}
	}
	if _, err := PageNumber("abc"); !errors.Is(err, fiber.ErrNotFound) {
		t.Fatalf("expected not found for non-numeric page, got %v", err)
	}
}

func TestNewPage(t *testing.T) {
	p, err := NewPage(2, 5, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.NumPages != 3 || p.Offset() != 5 || !p.HasPrevious() || !p.HasNext() {
		t.Fatalf("unexpected page %+v", p)
	}

	last, err := NewPage(lastPage, 5, 12)
	if err != nil || last.Number != 3 || last.HasNext() {
		t.Fatalf("last page resolved wrong: %+v %v", last, err)
	}

	empty, err := NewPage(1, 5, 0)
	if err != nil || empty.NumPages != 1 || empty.HasOtherPages() {
		t.Fatalf("empty first page must be valid: %+v %v", empty, err)
	}

	for _, n := range []int{0, -3, 4} {
		if _, err := NewPage(n, 5, 12); !errors.Is(err, fiber.ErrNotFound) {
			t.Fatalf("page %d should be not found, got %v", n, err)
		}
	}
}

func TestPageWindow(t *testing.T) {
	p, _ := NewPage(1, 5, 100)
	w := p.Window()
	if len(w) != 4 || w[0] != 1 || w[3] != 4 {
		t.Fatalf("unexpected window %v", w)
	}
}
