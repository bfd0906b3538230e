package ops

import (
	"time"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Method  string // optional filter: digital | physical
	Sealed  *bool  // optional filter on seal state
	DueOnly bool   // only capsules whose delivery date has passed
	Limit   int    // default: 50, max: 500
	Offset  int    // default: 0
	Now     time.Time
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []CapsuleSummary `json:"items"`
	Pagination Pagination       `json:"pagination"`
	Sort       string           `json:"sort"`
}

// List returns capsule summaries ordered by delivery date, earliest first.
func List(s *store.Store, input ListInput) (*ListOutput, error) {
	var method capsule.DeliveryMethod
	if input.Method != "" {
		m, ok := capsule.ParseMethod(input.Method)
		if !ok {
			return nil, errors.NewInvalidRequest("method must be digital or physical")
		}
		method = m
	}

	// Apply limit defaults and bounds
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	now := input.Now
	if now.IsZero() {
		now = s.Now()
	}

	var matched []*capsule.Capsule
	for _, c := range s.List() {
		if method != "" && c.Method() != method {
			continue
		}
		if input.Sealed != nil && c.IsSealed != *input.Sealed {
			continue
		}
		if input.DueOnly && !c.IsDue(now) {
			continue
		}
		matched = append(matched, c)
	}

	// Ensure we return an empty array rather than nil
	items := []CapsuleSummary{}
	for i := offset; i < len(matched) && len(items) < limit; i++ {
		items = append(items, Summarize(matched[i], now))
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < len(matched),
			Total:   len(matched),
		},
		Sort: "delivery_date_asc",
	}, nil
}
