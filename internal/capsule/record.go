package capsule

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is the flat wire form of a capsule, used for persistence, export,
// and JSON APIs. Method-specific fields are only meaningful for their method.
type Record struct {
	ID               string          `json:"id"`
	RecipientName    string          `json:"recipientName"`
	RecipientEmail   string          `json:"recipientEmail,omitempty"`
	RecipientAddress string          `json:"recipientAddress,omitempty"`
	DeliveryDate     string          `json:"deliveryDate"`
	Message          string          `json:"message"`
	File             *AttachmentFile `json:"file,omitempty"`
	CoverImageURL    string          `json:"coverImageUrl"`
	IsSealed         bool            `json:"isSealed"`
	DeliveryMethod   DeliveryMethod  `json:"deliveryMethod"`
	CoverChoice      CoverChoice     `json:"coverChoice,omitempty"`
	CreatedAt        int64           `json:"createdAt,omitempty"`
}

// ToRecord converts a capsule to its wire form.
func (c *Capsule) ToRecord() Record {
	r := Record{
		ID:             c.ID,
		RecipientName:  c.RecipientName,
		DeliveryDate:   FormatDate(c.DeliveryDate),
		Message:        c.Message,
		CoverImageURL:  c.CoverImageURL,
		IsSealed:       c.IsSealed,
		DeliveryMethod: c.Method(),
		CreatedAt:      c.CreatedAt,
	}

	switch d := c.Delivery.(type) {
	case Digital:
		r.RecipientEmail = d.Email
		if d.Attachment != nil {
			att := *d.Attachment
			r.File = &att
		}
	case Physical:
		r.RecipientAddress = d.Address
		r.CoverChoice = d.Cover
	}

	return r
}

// ToCapsule converts a wire record into a capsule.
// Fields that do not belong to the record's delivery method are dropped.
// Records with no id, name, message, method-specific contact, an unknown
// method, or an unparseable date are rejected. An empty cover is replaced
// by the placeholder seeded from CreatedAt.
func (r *Record) ToCapsule() (*Capsule, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, fmt.Errorf("record has no id")
	}
	if CleanField(r.RecipientName) == "" || CleanField(r.Message) == "" {
		return nil, fmt.Errorf("record %s: recipient name and message are required", r.ID)
	}

	date, err := ParseDate(r.DeliveryDate)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.ID, err)
	}

	c := &Capsule{
		ID:            r.ID,
		RecipientName: r.RecipientName,
		DeliveryDate:  date,
		Message:       r.Message,
		CoverImageURL: r.CoverImageURL,
		IsSealed:      r.IsSealed,
		CreatedAt:     r.CreatedAt,
	}

	switch r.DeliveryMethod {
	case MethodDigital:
		if CleanField(r.RecipientEmail) == "" {
			return nil, fmt.Errorf("record %s: digital capsule has no recipient email", r.ID)
		}
		d := Digital{Email: r.RecipientEmail}
		if r.File != nil {
			att := *r.File
			d.Attachment = &att
		}
		c.Delivery = d
	case MethodPhysical:
		if CleanField(r.RecipientAddress) == "" {
			return nil, fmt.Errorf("record %s: physical capsule has no recipient address", r.ID)
		}
		cover := r.CoverChoice
		if cover != CoverUpload {
			cover = CoverAI
		}
		c.Delivery = Physical{Address: r.RecipientAddress, Cover: cover}
	default:
		return nil, fmt.Errorf("record %s: unknown delivery method %q", r.ID, r.DeliveryMethod)
	}

	if strings.TrimSpace(c.CoverImageURL) == "" {
		c.CoverImageURL = PlaceholderCover(DefaultPlaceholderURL, c.CreatedAt)
	}
	return c, nil
}

// MarshalJSON encodes the capsule in its wire form.
func (c *Capsule) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToRecord())
}

// UnmarshalJSON decodes the wire form.
func (c *Capsule) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	decoded, err := r.ToCapsule()
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}
