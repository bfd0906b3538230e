package capsule

import "time"

// DeliveryMethod selects how a capsule is (conceptually) delivered.
type DeliveryMethod string

const (
	MethodDigital  DeliveryMethod = "digital"  // in-app viewing
	MethodPhysical DeliveryMethod = "physical" // simulated postal letter
)

// ParseMethod converts a user-supplied method string.
func ParseMethod(s string) (DeliveryMethod, bool) {
	switch DeliveryMethod(s) {
	case MethodDigital, MethodPhysical:
		return DeliveryMethod(s), true
	}
	return "", false
}

// CoverChoice selects how a physical letter's cover is produced.
type CoverChoice string

const (
	CoverAI     CoverChoice = "ai"
	CoverUpload CoverChoice = "upload"
)

// Delivery is the method-specific part of a capsule.
// It is implemented only by Digital and Physical.
type Delivery interface {
	Method() DeliveryMethod
	isDelivery()
}

// Digital is an in-app capsule addressed to an email recipient.
type Digital struct {
	Email      string
	Attachment *AttachmentFile // optional
}

// Method implements Delivery.
func (Digital) Method() DeliveryMethod { return MethodDigital }
func (Digital) isDelivery()            {}

// Physical is a simulated letter addressed to a postal address.
type Physical struct {
	Address string
	Cover   CoverChoice
}

// Method implements Delivery.
func (Physical) Method() DeliveryMethod { return MethodPhysical }
func (Physical) isDelivery()            {}

// AttachmentFile is an embedded media payload owned by a capsule.
type AttachmentFile struct {
	// Name is the original or generated file name
	Name string `json:"name"`

	// Type is the MIME type
	Type string `json:"type"`

	// Data is the base64 (std encoding) file content
	Data string `json:"data"`

	// Checksum is the hex BLAKE3 digest of the decoded content.
	// Empty for records written before checksums existed.
	Checksum string `json:"checksum,omitempty"`
}

// Capsule is a message scheduled for a future opening date.
type Capsule struct {
	// ID is a ULID assigned at creation
	ID string

	// RecipientName is who the capsule is for
	RecipientName string

	// DeliveryDate is when the capsule becomes due (UTC)
	DeliveryDate time.Time

	// Message is the capsule body (markdown allowed)
	Message string

	// CoverImageURL is an http(s) URL or a data: URL; never empty
	CoverImageURL string

	// IsSealed flips to true once and never reverts
	IsSealed bool

	// Delivery is Digital or Physical and fixed at creation
	Delivery Delivery

	// CreatedAt is the creation time in Unix milliseconds (0 for legacy records)
	CreatedAt int64
}

// Method returns the capsule's delivery method.
func (c *Capsule) Method() DeliveryMethod {
	if c.Delivery == nil {
		return ""
	}
	return c.Delivery.Method()
}

// Email returns the recipient email for digital capsules, else "".
func (c *Capsule) Email() string {
	if d, ok := c.Delivery.(Digital); ok {
		return d.Email
	}
	return ""
}

// Address returns the postal address for physical capsules, else "".
func (c *Capsule) Address() string {
	if p, ok := c.Delivery.(Physical); ok {
		return p.Address
	}
	return ""
}

// Attachment returns the digital attachment, if any.
func (c *Capsule) Attachment() *AttachmentFile {
	if d, ok := c.Delivery.(Digital); ok {
		return d.Attachment
	}
	return nil
}

// Clone returns a copy that shares no mutable state with c.
func (c *Capsule) Clone() *Capsule {
	cp := *c
	if d, ok := c.Delivery.(Digital); ok && d.Attachment != nil {
		att := *d.Attachment
		d.Attachment = &att
		cp.Delivery = d
	}
	return &cp
}
