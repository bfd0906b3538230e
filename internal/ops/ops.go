package ops

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/timeless/internal/capsule"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	ExcerptChars     = 140
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// CapsuleView is a capsule in wire form plus derived display state.
type CapsuleView struct {
	capsule.Record

	// Status is DRAFT, SEALED, or MAILED
	Status string `json:"status"`

	// Due is true once the delivery date has passed
	Due bool `json:"due"`

	// HasAttachment is set even when the attachment body is omitted
	HasAttachment bool `json:"hasAttachment"`

	// CustomLetterDesign is true for physical capsules with a real cover
	CustomLetterDesign bool `json:"customLetterDesign"`
}

// NewView builds a CapsuleView. The attachment body is dropped unless
// includeAttachment is set.
func NewView(c *capsule.Capsule, now time.Time, includeAttachment bool) CapsuleView {
	v := CapsuleView{
		Record:        c.ToRecord(),
		Status:        c.StatusLabel(),
		Due:           c.IsDue(now),
		HasAttachment: c.Attachment() != nil,

		CustomLetterDesign: c.HasCustomLetterDesign(),
	}
	if !includeAttachment {
		v.File = nil
	}
	return v
}

// CapsuleSummary is the compact list form of a capsule.
type CapsuleSummary struct {
	ID             string                 `json:"id"`
	RecipientName  string                 `json:"recipientName"`
	DeliveryDate   string                 `json:"deliveryDate"`
	DeliveryMethod capsule.DeliveryMethod `json:"deliveryMethod"`
	Status         string                 `json:"status"`
	IsSealed       bool                   `json:"isSealed"`
	Due            bool                   `json:"due"`
	Excerpt        string                 `json:"excerpt"`
	AttachmentKind capsule.AttachmentKind `json:"attachmentKind,omitempty"`
	CoverImageURL  string                 `json:"coverImageUrl"`

	CustomLetterDesign bool `json:"customLetterDesign"`
}

// Summarize builds the list form of c.
func Summarize(c *capsule.Capsule, now time.Time) CapsuleSummary {
	s := CapsuleSummary{
		ID:             c.ID,
		RecipientName:  c.RecipientName,
		DeliveryDate:   capsule.FormatDate(c.DeliveryDate),
		DeliveryMethod: c.Method(),
		Status:         c.StatusLabel(),
		IsSealed:       c.IsSealed,
		Due:            c.IsDue(now),
		Excerpt:        capsule.Excerpt(c.Message, ExcerptChars),
		CoverImageURL:  c.CoverImageURL,

		CustomLetterDesign: c.HasCustomLetterDesign(),
	}
	if att := c.Attachment(); att != nil {
		s.AttachmentKind = att.Kind()
	}
	return s
}

// generateULID generates a new ULID stamped with t.
func generateULID(t time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
