package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hpungsan/timeless/internal/attachment"
	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/gateway"
	"github.com/hpungsan/timeless/internal/store"
)

// InvalidCoverMessage is shown when an uploaded letter design is not an image.
const InvalidCoverMessage = "Please select a valid image file (e.g., JPG, PNG, GIF)."

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Method           string // digital | physical
	RecipientName    string
	RecipientEmail   string // digital only
	RecipientAddress string // physical only
	DeliveryDate     string // YYYY-MM-DD or RFC 3339
	Message          string

	// Attachment is kept for digital capsules and dropped for physical ones
	Attachment *capsule.AttachmentFile

	// CoverChoice is ai (default) or upload; physical only
	CoverChoice string

	// UploadedCover is an image data: URL used when CoverChoice is upload
	UploadedCover string
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	CapsuleView
	UsedPlaceholder bool `json:"usedPlaceholder"`
}

// Builder validates capsule input, resolves the cover, and commits the new
// capsule to the store. One creation runs at a time.
type Builder struct {
	store  *store.Store
	gen    gateway.Generator
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	busy atomic.Bool
}

// NewBuilder creates a Builder. A nil gen disables AI covers.
func NewBuilder(s *store.Store, gen gateway.Generator, cfg *config.Config, logger *slog.Logger) *Builder {
	if gen == nil {
		gen = gateway.Unavailable{}
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: s, gen: gen, cfg: cfg, logger: logger, now: s.Now}
}

// WithClock replaces the builder's time source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Busy reports whether a creation is in flight.
func (b *Builder) Busy() bool {
	return b.busy.Load()
}

// Create builds and stores a new capsule.
func (b *Builder) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if !b.busy.CompareAndSwap(false, true) {
		return nil, errors.NewBusy()
	}
	defer b.busy.Store(false)

	now := b.now()
	date, err := capsule.Validate(capsule.ValidateInput{
		Method:        capsule.DeliveryMethod(input.Method),
		RecipientName: input.RecipientName,
		Email:         input.RecipientEmail,
		Address:       input.RecipientAddress,
		DeliveryDate:  input.DeliveryDate,
		Message:       input.Message,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	method, _ := capsule.ParseMethod(input.Method)

	cover, err := b.checkCover(method, input)
	if err != nil {
		return nil, err
	}
	if method == capsule.MethodDigital && input.Attachment != nil {
		if err := b.checkAttachment(input.Attachment); err != nil {
			return nil, err
		}
	}

	c := &capsule.Capsule{
		RecipientName: capsule.CleanField(input.RecipientName),
		DeliveryDate:  date,
		Message:       capsule.CleanField(input.Message),
		CreatedAt:     now.UnixMilli(),
	}
	switch method {
	case capsule.MethodDigital:
		d := capsule.Digital{Email: capsule.CleanField(input.RecipientEmail)}
		if input.Attachment != nil {
			att := *input.Attachment
			d.Attachment = &att
		}
		c.Delivery = d
	case capsule.MethodPhysical:
		c.Delivery = capsule.Physical{Address: capsule.CleanField(input.RecipientAddress), Cover: cover}
	}

	placeholder := b.cfg.Placeholder(c.CreatedAt)
	if method == capsule.MethodPhysical && cover == capsule.CoverUpload {
		c.CoverImageURL = strings.TrimSpace(input.UploadedCover)
		if c.CoverImageURL == "" {
			c.CoverImageURL = placeholder
		}
	} else {
		c.CoverImageURL = gateway.CoverOrPlaceholder(ctx, b.gen, c.Message, placeholder, b.logger)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCreateFailed(fmt.Errorf("cover generation interrupted: %w", err))
	}

	c.ID, err = generateULID(now)
	if err != nil {
		return nil, errors.NewCreateFailed(err)
	}

	if err := b.store.Append(ctx, c); err != nil {
		return nil, errors.NewCreateFailed(err)
	}
	b.logger.Info("capsule created", "id", c.ID, "method", method, "delivery_date", capsule.FormatDate(date))

	return &CreateOutput{
		CapsuleView:     NewView(c, now, false),
		UsedPlaceholder: c.CoverImageURL == placeholder,
	}, nil
}

// checkCover resolves the physical cover choice and validates an upload.
func (b *Builder) checkCover(method capsule.DeliveryMethod, input CreateInput) (capsule.CoverChoice, error) {
	if method != capsule.MethodPhysical {
		return "", nil
	}

	switch capsule.CoverChoice(strings.ToLower(strings.TrimSpace(input.CoverChoice))) {
	case "", capsule.CoverAI:
		return capsule.CoverAI, nil
	case capsule.CoverUpload:
	default:
		return "", errors.NewInvalidRequest("cover choice must be ai or upload")
	}

	upload := strings.TrimSpace(input.UploadedCover)
	if upload == "" {
		return capsule.CoverUpload, nil
	}
	mimeType, data, err := attachment.ParseDataURL(upload)
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		return "", errors.NewInvalidRequest(InvalidCoverMessage)
	}
	if int64(len(data)) > b.cfg.MaxAttachmentBytes {
		return "", errors.NewAttachmentTooLarge(b.cfg.MaxAttachmentBytes, int64(len(data)))
	}
	return capsule.CoverUpload, nil
}

func (b *Builder) checkAttachment(f *capsule.AttachmentFile) error {
	data, err := attachment.Decode(f)
	if err != nil {
		return err
	}
	if int64(len(data)) > b.cfg.MaxAttachmentBytes {
		return errors.NewAttachmentTooLarge(b.cfg.MaxAttachmentBytes, int64(len(data)))
	}
	return nil
}
