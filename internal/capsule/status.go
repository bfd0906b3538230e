package capsule

import (
	"fmt"
	"strings"
	"time"
)

// Status labels shown on capsule cards.
const (
	LabelDraft  = "DRAFT"
	LabelSealed = "SEALED"
	LabelMailed = "MAILED"
)

// placeholderHost identifies generated placeholder covers.
const placeholderHost = "picsum.photos"

// DefaultPlaceholderURL is the fallback cover template; %d takes the
// creation time in Unix milliseconds.
const DefaultPlaceholderURL = "https://" + placeholderHost + "/seed/%d/512/512?grayscale"

// PlaceholderCover renders template for a creation time. A template without
// %d is returned as is.
func PlaceholderCover(template string, createdAtMillis int64) string {
	if !strings.Contains(template, "%d") {
		return template
	}
	return fmt.Sprintf(template, createdAtMillis)
}

// IsDue reports whether the delivery date has passed. Nothing happens when
// a capsule becomes due; this only drives display.
func (c *Capsule) IsDue(now time.Time) bool {
	return c.DeliveryDate.Before(now)
}

// StatusLabel returns DRAFT, SEALED (digital), or MAILED (physical).
func (c *Capsule) StatusLabel() string {
	if !c.IsSealed {
		return LabelDraft
	}
	if c.Method() == MethodPhysical {
		return LabelMailed
	}
	return LabelSealed
}

// IsPlaceholderCover reports whether url is a generated placeholder image.
func IsPlaceholderCover(url string) bool {
	return strings.Contains(url, placeholderHost)
}

// HasCustomLetterDesign reports whether a physical capsule carries a real
// (AI or uploaded) letter design rather than a placeholder.
func (c *Capsule) HasCustomLetterDesign() bool {
	return c.Method() == MethodPhysical && c.CoverImageURL != "" && !IsPlaceholderCover(c.CoverImageURL)
}

// AttachmentKind classifies an attachment by MIME type.
type AttachmentKind string

const (
	KindAudio AttachmentKind = "audio"
	KindVideo AttachmentKind = "video"
	KindImage AttachmentKind = "image"
	KindFile  AttachmentKind = "file"
)

// Kind returns the attachment's media kind.
func (f *AttachmentFile) Kind() AttachmentKind {
	switch {
	case strings.HasPrefix(f.Type, "audio/"):
		return KindAudio
	case strings.HasPrefix(f.Type, "video/"):
		return KindVideo
	case strings.HasPrefix(f.Type, "image/"):
		return KindImage
	}
	return KindFile
}

// ActionLabel is the button text for opening the attachment.
func (f *AttachmentFile) ActionLabel() string {
	switch f.Kind() {
	case KindAudio:
		return "Play Recording"
	case KindVideo:
		return "Play Video"
	}
	return "View Attachment"
}
