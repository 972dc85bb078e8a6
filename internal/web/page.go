package web

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const lastPage = -1

// Page describes one slice of a paginated listing.
type Page struct {
	Number   int
	Size     int
	Total    int
	NumPages int
}

// PageNumber parses the ?page= value. An empty value is page 1 and "last"
// resolves once the total is known.
func PageNumber(raw string) (int, error) {
	switch raw {
	case "":
		return 1, nil
	case "last":
		return lastPage, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.ErrNotFound
	}
	return n, nil
}

// NewPage validates number against total items. The first page always
// exists, even when there is nothing to show on it.
func NewPage(number, size, total int) (Page, error) {
	if size < 1 {
		size = 1
	}
	numPages := (total + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}
	if number == lastPage {
		number = numPages
	}
	if number < 1 || number > numPages {
		return Page{}, fiber.ErrNotFound
	}
	return Page{Number: number, Size: size, Total: total, NumPages: numPages}, nil
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) HasPrevious() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.NumPages }

func (p Page) HasOtherPages() bool { return p.NumPages > 1 }

func (p Page) Previous() int { return p.Number - 1 }

func (p Page) Next() int { return p.Number + 1 }

// Window lists the page numbers shown around the current one.
func (p Page) Window() []int {
	out := make([]int, 0, 7)
	for n := p.Number - 3; n <= p.Number+3; n++ {
		if n >= 1 && n <= p.NumPages {
			out = append(out, n)
		}
	}
	return out
}
