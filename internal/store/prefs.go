package store

import (
	"context"
	"strings"

	"github.com/hpungsan/timeless/internal/errors"
)

// Plan is the user's subscription tier. It only affects display.
type Plan string

const (
	PlanStarter Plan = "starter"
	PlanPlus    Plan = "plus"
	PlanLegacy  Plan = "legacy"
)

// Plans lists the tiers in display order.
var Plans = []Plan{PlanStarter, PlanPlus, PlanLegacy}

// ParsePlan validates a plan name.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Plans {
		if p == known {
			return p, nil
		}
	}
	return "", errors.NewInvalidRequest("unknown plan " + `"` + s + `"` + "; expected starter, plus, or legacy")
}

// Plan returns the stored plan. Missing or unknown values read as starter.
func (s *Store) Plan(ctx context.Context) Plan {
	raw, ok, err := s.kv.Get(ctx, KeyPlan)
	if err != nil {
		s.logger.Warn("failed to read plan", "error", err)
		return PlanStarter
	}
	if !ok {
		return PlanStarter
	}
	p, err := ParsePlan(raw)
	if err != nil {
		s.logger.Warn("ignoring unknown stored plan", "plan", raw)
		return PlanStarter
	}
	return p
}

// SetPlan stores the plan.
func (s *Store) SetPlan(ctx context.Context, plan string) (Plan, error) {
	p, err := ParsePlan(plan)
	if err != nil {
		return "", err
	}
	if err := s.kv.Put(ctx, KeyPlan, string(p)); err != nil {
		return "", errors.NewInternal(err)
	}
	return p, nil
}

// Visited reports whether the intro has been completed.
func (s *Store) Visited(ctx context.Context) bool {
	raw, ok, err := s.kv.Get(ctx, KeyVisited)
	if err != nil {
		s.logger.Warn("failed to read visited flag", "error", err)
		return false
	}
	return ok && raw == "true"
}

// MarkVisited records that the intro has been completed.
func (s *Store) MarkVisited(ctx context.Context) error {
	if err := s.kv.Put(ctx, KeyVisited, "true"); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Start completes the intro with the chosen plan.
func (s *Store) Start(ctx context.Context, plan string) (Plan, error) {
	p, err := s.SetPlan(ctx, plan)
	if err != nil {
		return "", err
	}
	if err := s.MarkVisited(ctx); err != nil {
		return "", err
	}
	s.logger.Info("intro completed", "plan", p)
	return p, nil
}
