package capsule

import (
	"testing"
	"time"
)

func TestStatusLabel(t *testing.T) {
	digital := &Capsule{Delivery: Digital{Email: "a@b.com"}}
	physical := &Capsule{Delivery: Physical{Address: "1 Main St"}}

	if got := digital.StatusLabel(); got != LabelDraft {
		t.Errorf("unsealed digital = %q, want %q", got, LabelDraft)
	}

	digital.IsSealed = true
	physical.IsSealed = true
	if got := digital.StatusLabel(); got != LabelSealed {
		t.Errorf("sealed digital = %q, want %q", got, LabelSealed)
	}
	if got := physical.StatusLabel(); got != LabelMailed {
		t.Errorf("sealed physical = %q, want %q", got, LabelMailed)
	}
}

func TestIsDue(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &Capsule{DeliveryDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if !c.IsDue(now) {
		t.Error("past date should be due")
	}
	c.DeliveryDate = now.Add(time.Hour)
	if c.IsDue(now) {
		t.Error("future date should not be due")
	}
}

func TestHasCustomLetterDesign(t *testing.T) {
	tests := []struct {
		name string
		c    Capsule
		want bool
	}{
		{"physical ai", Capsule{Delivery: Physical{}, CoverImageURL: "https://cdn.example/img.png"}, true},
		{"physical placeholder", Capsule{Delivery: Physical{}, CoverImageURL: "https://picsum.photos/seed/1/512/512?grayscale"}, false},
		{"digital", Capsule{Delivery: Digital{}, CoverImageURL: "https://cdn.example/img.png"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.HasCustomLetterDesign(); got != tt.want {
				t.Errorf("HasCustomLetterDesign() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAttachmentKind(t *testing.T) {
	tests := []struct {
		mime  string
		kind  AttachmentKind
		label string
	}{
		{"audio/webm", KindAudio, "Play Recording"},
		{"video/mp4", KindVideo, "Play Video"},
		{"image/png", KindImage, "View Attachment"},
		{"application/pdf", KindFile, "View Attachment"},
	}

	for _, tt := range tests {
		f := &AttachmentFile{Type: tt.mime}
		if got := f.Kind(); got != tt.kind {
			t.Errorf("Kind(%q) = %q, want %q", tt.mime, got, tt.kind)
		}
		if got := f.ActionLabel(); got != tt.label {
			t.Errorf("ActionLabel(%q) = %q, want %q", tt.mime, got, tt.label)
		}
	}
}
