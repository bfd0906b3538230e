package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/store"
)

// IntentOutput describes a pending seal or delete awaiting confirmation.
type IntentOutput struct {
	Token     string `json:"token"`
	Action    string `json:"action"`
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	ExpiresAt int64  `json:"expires_at"`
}

func newIntentOutput(in *store.Intent) *IntentOutput {
	return &IntentOutput{
		Token:     in.Token,
		Action:    string(in.Action),
		ID:        in.CapsuleID,
		Prompt:    in.Prompt,
		ExpiresAt: in.ExpiresAt.Unix(),
	}
}

// RequestSeal starts the two-step seal of a capsule.
func RequestSeal(s *store.Store, id string) (*IntentOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	in, err := s.RequestSeal(id)
	if err != nil {
		return nil, err
	}
	return newIntentOutput(in), nil
}

// RequestDelete starts the two-step delete of a capsule.
func RequestDelete(s *store.Store, id string) (*IntentOutput, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	in, err := s.RequestDelete(id)
	if err != nil {
		return nil, err
	}
	return newIntentOutput(in), nil
}

// ConfirmOutput contains the result of a confirmed action.
type ConfirmOutput struct {
	Action  string       `json:"action"`
	ID      string       `json:"id"`
	Sealed  bool         `json:"sealed"`
	Deleted bool         `json:"deleted"`
	Capsule *CapsuleView `json:"capsule,omitempty"`
}

// Confirm executes a pending seal or delete.
func Confirm(ctx context.Context, s *store.Store, token string) (*ConfirmOutput, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.NewInvalidRequest("token is required")
	}

	res, err := s.Confirm(ctx, token)
	if err != nil {
		return nil, err
	}

	out := &ConfirmOutput{
		Action: string(res.Intent.Action),
		ID:     res.Intent.CapsuleID,
	}
	switch res.Intent.Action {
	case store.ActionSeal:
		out.Sealed = true
		if res.Capsule != nil {
			view := NewView(res.Capsule, s.Now(), false)
			out.Capsule = &view
		}
	case store.ActionDelete:
		out.Deleted = true
	}
	return out, nil
}

// CancelOutput contains the result of the Cancel operation.
type CancelOutput struct {
	Cancelled bool `json:"cancelled"`
}

// Cancel discards a pending seal or delete.
func Cancel(s *store.Store, token string) *CancelOutput {
	s.Cancel(strings.TrimSpace(token))
	return &CancelOutput{Cancelled: true}
}

// Seal requests and immediately confirms a seal, for callers that have
// already confirmed with the user.
func Seal(ctx context.Context, s *store.Store, id string) (*ConfirmOutput, error) {
	in, err := RequestSeal(s, id)
	if err != nil {
		return nil, err
	}
	return Confirm(ctx, s, in.Token)
}

// Delete requests and immediately confirms a delete, for callers that have
// already confirmed with the user.
func Delete(ctx context.Context, s *store.Store, id string) (*ConfirmOutput, error) {
	in, err := RequestDelete(s, id)
	if err != nil {
		return nil, err
	}
	return Confirm(ctx, s, in.Token)
}
