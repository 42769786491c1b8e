package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	id, err := NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if len(id) != 26 {
		t.Fatalf("len=%d want=26: %s", len(id), id)
	}

	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := parsed.Time(); got != ulid.Timestamp(now) {
		t.Fatalf("timestamp=%d want=%d", got, ulid.Timestamp(now))
	}

	other, err := NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if other == id {
		t.Fatalf("two ulids collided: %s", id)
	}
}

func TestNewULIDZeroTime(t *testing.T) {
	t.Parallel()

	id, err := NewULID(time.Time{})
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if _, err := ulid.Parse(id); err != nil {
		t.Fatalf("parse: %v", err)
	}
}
