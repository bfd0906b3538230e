package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/store"
)

// UpdateInput contains parameters for the Update operation.
// Only the recipient name and message of an unsealed capsule can change.
type UpdateInput struct {
	ID            string
	RecipientName *string
	Message       *string
}

// Update edits an unsealed capsule.
func Update(ctx context.Context, s *store.Store, input UpdateInput) (*CapsuleView, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	c, err := s.Update(ctx, id, store.Edit{
		RecipientName: input.RecipientName,
		Message:       input.Message,
	})
	if err != nil {
		return nil, err
	}

	view := NewView(c, s.Now(), false)
	return &view, nil
}
