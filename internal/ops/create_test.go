package ops

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/timeless/internal/attachment"
	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/config"
	terrors "github.com/hpungsan/timeless/internal/errors"
)

func TestCreate_Digital(t *testing.T) {
	s := newTestStore(t)
	b := newTestBuilder(s, &fakeGenerator{image: "https://img.example/cover.png"})

	in := digitalInput("Ada", "2031-01-01")
	in.RecipientName = "  Ada Lovelace "
	in.Attachment = attachment.FromBytes("note.txt", "text/plain", []byte("hi"))

	out := mustCreate(t, b, in)
	if out.ID == "" {
		t.Fatal("expected an id")
	}
	if out.RecipientName != "Ada Lovelace" {
		t.Errorf("RecipientName = %q, want trimmed", out.RecipientName)
	}
	if out.Status != capsule.LabelDraft || out.IsSealed {
		t.Errorf("new capsule should be an unsealed draft, got %s", out.Status)
	}
	if out.CoverImageURL != "https://img.example/cover.png" || out.UsedPlaceholder {
		t.Errorf("CoverImageURL = %q, UsedPlaceholder = %v", out.CoverImageURL, out.UsedPlaceholder)
	}
	if !out.HasAttachment || out.File != nil {
		t.Error("create output should flag the attachment without carrying its body")
	}
	if out.CreatedAt != testNow.UnixMilli() {
		t.Errorf("CreatedAt = %d", out.CreatedAt)
	}

	stored, err := s.Get(out.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Attachment() == nil || stored.Attachment().Name != "note.txt" {
		t.Error("attachment not stored")
	}
	if stored.Email() != "Ada@example.com" {
		t.Errorf("Email = %q", stored.Email())
	}
}

func TestCreate_PhysicalDropsAttachment(t *testing.T) {
	s := newTestStore(t)
	b := newTestBuilder(s, &fakeGenerator{image: "https://img.example/letter.png"})

	in := physicalInput("Grace", "2031-01-01")
	in.Attachment = attachment.FromBytes("a.txt", "text/plain", []byte("x"))

	out := mustCreate(t, b, in)
	stored, _ := s.Get(out.ID)
	if stored.Method() != capsule.MethodPhysical {
		t.Fatalf("Method = %s", stored.Method())
	}
	if stored.Attachment() != nil || out.HasAttachment {
		t.Error("physical capsules never carry an attachment")
	}
	if p := stored.Delivery.(capsule.Physical); p.Cover != capsule.CoverAI {
		t.Errorf("Cover = %q, want ai", p.Cover)
	}
}

func TestCreate_PlaceholderOnGeneratorFailure(t *testing.T) {
	s := newTestStore(t)
	b := newTestBuilder(s, &fakeGenerator{err: errors.New("provider down")})

	out := mustCreate(t, b, digitalInput("Ada", "2031-01-01"))
	want := config.DefaultConfig().Placeholder(testNow.UnixMilli())
	if out.CoverImageURL != want {
		t.Errorf("CoverImageURL = %q, want %q", out.CoverImageURL, want)
	}
	if !out.UsedPlaceholder {
		t.Error("UsedPlaceholder should be set")
	}
}

func TestCreate_UploadedCover(t *testing.T) {
	s := newTestStore(t)
	gen := &fakeGenerator{image: "https://img.example/unused.png"}
	b := newTestBuilder(s, gen)

	upload := attachment.DataURL(attachment.FromBytes("c.png", "image/png", []byte("\x89PNG\r\n\x1a\n")))
	in := physicalInput("Grace", "2031-01-01")
	in.CoverChoice = "upload"
	in.UploadedCover = upload

	out := mustCreate(t, b, in)
	if out.CoverImageURL != upload {
		t.Error("uploaded cover should be stored as-is")
	}
	if gen.coverCalls != 0 {
		t.Errorf("generator called %d times for an uploaded cover", gen.coverCalls)
	}
	if out.CoverChoice != capsule.CoverUpload {
		t.Errorf("CoverChoice = %q", out.CoverChoice)
	}
}

func TestCreate_UploadedCoverNotImage(t *testing.T) {
	s := newTestStore(t)
	b := newTestBuilder(s, &fakeGenerator{})

	in := physicalInput("Grace", "2031-01-01")
	in.CoverChoice = "upload"
	in.UploadedCover = "data:text/plain;base64,aGk="

	_, err := b.Create(context.Background(), in)
	if !terrors.Is(err, terrors.ErrInvalidRequest) || !strings.Contains(err.Error(), InvalidCoverMessage) {
		t.Errorf("expected invalid cover error, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("nothing should be stored")
	}
}

func TestCreate_Validation(t *testing.T) {
	s := newTestStore(t)
	b := newTestBuilder(s, &fakeGenerator{})

	noEmail := digitalInput("Ada", "2031-01-01")
	noEmail.RecipientEmail = " "
	noAddress := physicalInput("Ada", "2031-01-01")
	noAddress.RecipientAddress = ""
	noMessage := digitalInput("Ada", "2031-01-01")
	noMessage.Message = "\n\t"
	badMethod := digitalInput("Ada", "2031-01-01")
	badMethod.Method = "pigeon"

	tests := []struct {
		name string
		in   CreateInput
		code terrors.ErrorCode
	}{
		{"missing message", noMessage, terrors.ErrMissingFields},
		{"missing email", noEmail, terrors.ErrEmailRequired},
		{"missing address", noAddress, terrors.ErrAddressRequired},
		{"unknown method", badMethod, terrors.ErrInvalidRequest},
		{"today", digitalInput("Ada", "2030-05-01"), terrors.ErrDateNotFuture},
		{"past", digitalInput("Ada", "1999-01-01"), terrors.ErrDateNotFuture},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Create(context.Background(), tc.in)
			if !terrors.Is(err, tc.code) {
				t.Errorf("expected %s, got %v", tc.code, err)
			}
		})
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after rejected creates", s.Len())
	}

	// Tomorrow is the earliest accepted date
	mustCreate(t, b, digitalInput("Ada", "2030-05-02"))
}

func TestCreate_AttachmentTooLarge(t *testing.T) {
	s := newTestStore(t)
	cfg := config.DefaultConfig()
	cfg.MaxAttachmentBytes = 4
	b := NewBuilder(s, &fakeGenerator{}, cfg, nil).WithClock(func() time.Time { return testNow })

	in := digitalInput("Ada", "2031-01-01")
	in.Attachment = attachment.FromBytes("big.bin", "application/octet-stream", []byte("0123456789"))

	_, err := b.Create(context.Background(), in)
	if !terrors.Is(err, terrors.ErrAttachmentTooLarge) {
		t.Errorf("expected ATTACHMENT_TOO_LARGE, got %v", err)
	}
}

func TestCreate_Busy(t *testing.T) {
	s := newTestStore(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	gen := &fakeGenerator{image: "https://img.example/c.png", onCover: func(context.Context) {
		close(entered)
		<-release
	}}
	b := newTestBuilder(s, gen)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = b.Create(context.Background(), digitalInput("Ada", "2031-01-01"))
	}()

	<-entered
	if !b.Busy() {
		t.Error("Busy should report an in-flight create")
	}
	_, err := b.Create(context.Background(), digitalInput("Bob", "2031-01-01"))
	if !terrors.Is(err, terrors.ErrBusy) {
		t.Errorf("expected BUSY, got %v", err)
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first create failed: %v", firstErr)
	}
	if b.Busy() {
		t.Error("Busy should clear after create returns")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestCreate_CancelledDuringCover(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeGenerator{onCover: func(context.Context) { cancel() }, err: context.Canceled}
	b := newTestBuilder(s, gen)

	_, err := b.Create(ctx, digitalInput("Ada", "2031-01-01"))
	if !terrors.Is(err, terrors.ErrCreateFailed) {
		t.Errorf("expected CREATE_FAILED, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("a failed create must not store anything")
	}
}
