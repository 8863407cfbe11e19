package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

type samplePayload struct {
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"nope","quantity":0}`))
	var dest samplePayload
	err := DecodeJSONBody(r, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" || details["quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndEmpty(t *testing.T) {
	var dest samplePayload
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","quantity":1,"extra":true}`))
	if err := DecodeJSONBody(r, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unknown field rejection, got %v", err)
	}
	r = httptest.NewRequest("POST", "/", strings.NewReader(``))
	if err := DecodeJSONBody(r, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected empty body rejection, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=500", nil)
	if _, err := ParseQueryInt(r, "limit", 25, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	r = httptest.NewRequest("GET", "/", nil)
	if got, err := ParseQueryInt(r, "limit", 25, 1, 100); err != nil || got != 25 {
		t.Fatalf("expected default 25, got %d err=%v", got, err)
	}
}

func TestParseUUID(t *testing.T) {
	if _, err := ParseUUID("not-an-id", "id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseUUID(" 3f1c2a9e-0d1b-4c55-9a8e-4d8f0f9e2b11 ", "id"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	if got, err := BearerToken("Bearer abc.def"); err != nil || got != "abc.def" {
		t.Fatalf("unexpected token %q err=%v", got, err)
	}
	if _, err := BearerToken("Basic xyz"); err == nil {
		t.Fatalf("expected non-bearer rejection")
	}
	if _, err := BearerToken("bearer   "); err == nil {
		t.Fatalf("expected empty token rejection")
	}
}

func TestSanitizeStringIsRuneSafe(t *testing.T) {
	if got := SanitizeString("  héllo world ", 3); got != "hél" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := SanitizeString("  hello ", 0); got != "hello" {
		t.Fatalf("expected trim only, got %q", got)
	}
}
