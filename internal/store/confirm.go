package store

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/errors"
)

// Action is an irreversible operation that needs explicit confirmation.
type Action string

const (
	ActionSeal   Action = "seal"
	ActionDelete Action = "delete"
)

// Confirmation prompts shown before an irreversible action.
const (
	SealPrompt   = "Are you sure you want to seal this capsule? Once sealed, it cannot be edited or deleted."
	DeletePrompt = "Are you sure you want to delete this capsule? This action cannot be undone."
)

// Intent is a pending irreversible action awaiting confirmation.
type Intent struct {
	Token     string    `json:"token"`
	Action    Action    `json:"action"`
	CapsuleID string    `json:"capsule_id"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmResult reports the outcome of a confirmed intent.
type ConfirmResult struct {
	Intent Intent

	// Capsule is the sealed capsule; nil after a delete
	Capsule *capsule.Capsule
}

// RequestSeal issues an intent to seal id.
func (s *Store) RequestSeal(id string) (*Intent, error) {
	return s.request(ActionSeal, id, SealPrompt)
}

// RequestDelete issues an intent to delete id. Sealed capsules are refused
// up front.
func (s *Store) RequestDelete(id string) (*Intent, error) {
	return s.request(ActionDelete, id, DeletePrompt)
}

func (s *Store) request(action Action, id, prompt string) (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, errors.NewNotFound(id)
	}
	if action == ActionDelete && s.capsules[i].IsSealed {
		return nil, errors.NewSealed(id)
	}

	now := s.now()
	s.purgeExpiredLocked(now)

	token, err := newToken(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	in := &Intent{
		Token:     token,
		Action:    action,
		CapsuleID: id,
		Prompt:    prompt,
		ExpiresAt: now.Add(s.ttl),
	}
	s.intents[token] = in

	cp := *in
	return &cp, nil
}

// Confirm executes the intent behind token exactly once.
func (s *Store) Confirm(ctx context.Context, token string) (*ConfirmResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[token]
	if !ok {
		return nil, errors.NewConfirmationRequired(token)
	}
	delete(s.intents, token)
	if !s.now().Before(in.ExpiresAt) {
		return nil, errors.NewConfirmationRequired(token)
	}

	res := &ConfirmResult{Intent: *in}
	switch in.Action {
	case ActionSeal:
		c, err := s.sealLocked(ctx, in.CapsuleID)
		if err != nil {
			return nil, err
		}
		res.Capsule = c
	case ActionDelete:
		if err := s.deleteLocked(ctx, in.CapsuleID); err != nil {
			return nil, err
		}
	default:
		return nil, errors.NewInvalidRequest("unknown action " + string(in.Action))
	}
	return res, nil
}

// Cancel discards a pending intent. Unknown tokens are ignored.
func (s *Store) Cancel(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, token)
}

// Pending returns the number of live intents.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return len(s.intents)
}

func (s *Store) purgeExpiredLocked(now time.Time) {
	for token, in := range s.intents {
		if !now.Before(in.ExpiresAt) {
			delete(s.intents, token)
		}
	}
}

func newToken(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
