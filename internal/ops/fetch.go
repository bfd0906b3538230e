package ops

import (
	"strings"
	"time"

	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/store"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID                string
	IncludeAttachment *bool // default: true (nil means default)
	Now               time.Time
}

// Fetch retrieves a single capsule by id.
func Fetch(s *store.Store, input FetchInput) (*CapsuleView, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	includeAttachment := true
	if input.IncludeAttachment != nil {
		includeAttachment = *input.IncludeAttachment
	}
	now := input.Now
	if now.IsZero() {
		now = s.Now()
	}

	view := NewView(c, now, includeAttachment)
	return &view, nil
}
