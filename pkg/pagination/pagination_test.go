package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit {
		t.Fatalf("expected default limit")
	}
	if NormalizeLimit(1000) != MaxLimit {
		t.Fatalf("expected max limit")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffer of one")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 5, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", out, in)
	}
	if c, err := ParseCursor(""); c != nil || err != nil {
		t.Fatalf("expected nil cursor for empty input")
	}
}

func TestIDCursor(t *testing.T) {
	id, ok, err := ParseIDCursor(EncodeIDCursor(42))
	if err != nil || !ok || id != 42 {
		t.Fatalf("unexpected id cursor result %d %v %v", id, ok, err)
	}
	if _, ok, err := ParseIDCursor(""); ok || err != nil {
		t.Fatalf("expected empty cursor to be absent")
	}
	if _, _, err := ParseIDCursor(EncodeCursor(Cursor{ID: uuid.New()})); err == nil {
		t.Fatal("expected time cursor to be rejected")
	}
	if _, _, err := ParseIDCursor("%%%"); err == nil {
		t.Fatal("expected decode error")
	}
}
