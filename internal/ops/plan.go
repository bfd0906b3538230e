package ops

import (
	"context"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/store"
)

// PlanInfo describes a plan tier for display.
type PlanInfo struct {
	Plan        store.Plan `json:"plan"`
	Name        string     `json:"name"`
	Price       string     `json:"price"`
	Period      string     `json:"period"`
	Description string     `json:"description"`
	Features    []string   `json:"features"`
	Highlight   bool       `json:"highlight,omitempty"`
}

// PlanCatalog lists the tiers in display order.
var PlanCatalog = []PlanInfo{
	{
		Plan:        store.PlanStarter,
		Name:        "Starter",
		Price:       "$0",
		Period:      "forever",
		Description: "Perfect for getting started and preserving your first precious memories.",
		Features:    []string{"100 Capsules", "25MB Storage"},
	},
	{
		Plan:        store.PlanLegacy,
		Name:        "Legacy",
		Price:       "$9.99",
		Period:      "month",
		Description: "The ultimate plan for creating a lasting legacy with no limitations.",
		Features: []string{
			`Premium "Legacy" Access`,
			"Unlimited Capsules",
			"Unlimited Storage",
			"Unlimited Private Videos",
			"Voice Recording Messages",
		},
		Highlight: true,
	},
	{
		Plan:        store.PlanPlus,
		Name:        "Plus",
		Price:       "$3.99",
		Period:      "month",
		Description: "Unlock more storage and the power of video to tell your story.",
		Features:    []string{"Unlimited Capsules", "1GB Storage", "Unlock Private Video"},
	},
}

// LetterPrice is the displayed price of a physical letter under plan.
// Every tier currently pays the same.
func LetterPrice(store.Plan) string {
	return "$0.99"
}

// SaveLabel is the create button text for a delivery method.
func SaveLabel(method capsule.DeliveryMethod, plan store.Plan) string {
	if method == capsule.MethodPhysical {
		return "Save Letter (" + LetterPrice(plan) + ")"
	}
	return "Save Capsule"
}

// PlanOutput reports the user's plan state.
type PlanOutput struct {
	Plan        store.Plan `json:"plan"`
	Visited     bool       `json:"visited"`
	LetterPrice string     `json:"letter_price"`
}

// GetPlan returns the stored plan and intro state.
func GetPlan(ctx context.Context, s *store.Store) *PlanOutput {
	p := s.Plan(ctx)
	return &PlanOutput{Plan: p, Visited: s.Visited(ctx), LetterPrice: LetterPrice(p)}
}

// SetPlan changes the plan without touching the intro state.
func SetPlan(ctx context.Context, s *store.Store, plan string) (*PlanOutput, error) {
	if _, err := s.SetPlan(ctx, plan); err != nil {
		return nil, err
	}
	return GetPlan(ctx, s), nil
}

// Start completes the intro with the chosen plan.
func Start(ctx context.Context, s *store.Store, plan string) (*PlanOutput, error) {
	if _, err := s.Start(ctx, plan); err != nil {
		return nil, err
	}
	return GetPlan(ctx, s), nil
}
