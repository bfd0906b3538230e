package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/timeless/internal/attachment"
	"github.com/hpungsan/timeless/internal/errors"
)

func TestFetch(t *testing.T) {
	b := newTestBuilder(newTestStore(t), &fakeGenerator{})
	in := digitalInput("Ada", "2031-01-01")
	in.Attachment = attachment.FromBytes("photo.png", "image/png", []byte("png"))
	id := mustCreate(t, b, in).ID

	view, err := Fetch(b.store, FetchInput{ID: " " + id + " ", Now: testNow})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if view.ID != id || view.Status != "DRAFT" || view.Due {
		t.Errorf("view = %+v", view)
	}
	if view.File == nil || view.File.Name != "photo.png" {
		t.Error("attachment body should be included by default")
	}

	without := false
	view, _ = Fetch(b.store, FetchInput{ID: id, IncludeAttachment: &without, Now: testNow})
	if view.File != nil || !view.HasAttachment {
		t.Error("IncludeAttachment=false should drop the body but keep the flag")
	}
}

func TestFetch_Errors(t *testing.T) {
	s := newTestStore(t)

	if _, err := Fetch(s, FetchInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
	if _, err := Fetch(s, FetchInput{ID: "01MISSING"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newTestStore(t), &fakeGenerator{})
	id := mustCreate(t, b, digitalInput("Ada", "2031-01-01")).ID

	msg := "  A new message\nwith two lines "
	view, err := Update(ctx, b.store, UpdateInput{ID: id, Message: &msg})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if view.Message != "A new message\nwith two lines" || view.RecipientName != "Ada" {
		t.Errorf("view = %+v", view)
	}

	blank := "  "
	if _, err := Update(ctx, b.store, UpdateInput{ID: id, RecipientName: &blank}); !errors.Is(err, errors.ErrMissingFields) {
		t.Errorf("expected MISSING_FIELDS, got %v", err)
	}
	if _, err := Update(ctx, b.store, UpdateInput{ID: id}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST for empty edit, got %v", err)
	}

	if _, err := Seal(ctx, b.store, id); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	name := "Bob"
	if _, err := Update(ctx, b.store, UpdateInput{ID: id, RecipientName: &name}); !errors.Is(err, errors.ErrSealed) {
		t.Errorf("expected SEALED, got %v", err)
	}
}
