package form

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type signup struct {
	Username string `form:"username" validate:"required,max=10,username"`
	Email    string `form:"email" validate:"required,email"`
	Gender   string `form:"gender" validate:"omitempty,oneof=Male Female"`
	Body     string `form:"body" validate:"notblank"`
}

func TestValidate_KeysByFormTag(t *testing.T) {
	errs := Validate(signup{Username: "bad name!", Email: "nope", Gender: "x", Body: "   "})

	for _, field := range []string{"username", "email", "gender", "body"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}
	if !strings.Contains(errs["email"], "valid email") {
		t.Fatalf("unexpected email message %q", errs["email"])
	}
	if errs["body"] != "This field is required." {
		t.Fatalf("blank body should be required, got %q", errs["body"])
	}
}

func TestValidate_MaxLengthMessage(t *testing.T) {
	errs := Validate(signup{Username: "abcdefghijkl", Email: "a@b.co", Body: "x"})
	if !strings.Contains(errs["username"], "at most 10 characters (it has 12)") {
		t.Fatalf("unexpected max message %q", errs["username"])
	}
}

func TestValidate_Valid(t *testing.T) {
	errs := Validate(signup{Username: "jane.doe", Email: "jane@example.com", Gender: "Female", Body: "hi"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if errs.Err() != nil {
		t.Fatalf("empty errors should be a nil error")
	}
}

func TestErrors_AsError(t *testing.T) {
	errs := Errors{}
	errs.Add("title", "first")
	errs.Add("title", "second")
	if errs["title"] != "first" {
		t.Fatalf("Add must keep the first message, got %q", errs["title"])
	}

	wrapped := fmt.Errorf("create post: %w", errs.Err())
	got, ok := AsErrors(wrapped)
	if !ok || got["title"] != "first" {
		t.Fatalf("expected to unwrap form errors, got %v %v", got, ok)
	}
	if _, ok := AsErrors(errors.New("boom")); ok {
		t.Fatalf("plain errors are not form errors")
	}
}
