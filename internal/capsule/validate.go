package capsule

import (
	"time"

	"github.com/hpungsan/timeless/internal/errors"
)

// ValidateInput carries the raw form fields checked before a capsule is built.
type ValidateInput struct {
	Method        DeliveryMethod
	RecipientName string
	Email         string
	Address       string
	DeliveryDate  string
	Message       string
	Now           time.Time
}

// Validate applies the creation rules in order and stops at the first failure:
// 1. recipient name, delivery date, and message are non-empty
// 2. digital capsules have an email
// 3. physical capsules have an address
// 4. the delivery date is strictly after Now
//
// On success it returns the parsed delivery date.
func Validate(in ValidateInput) (time.Time, error) {
	if CleanField(in.RecipientName) == "" || CleanField(in.DeliveryDate) == "" || CleanField(in.Message) == "" {
		return time.Time{}, errors.NewMissingFields()
	}

	switch in.Method {
	case MethodDigital:
		if CleanField(in.Email) == "" {
			return time.Time{}, errors.NewEmailRequired()
		}
	case MethodPhysical:
		if CleanField(in.Address) == "" {
			return time.Time{}, errors.NewAddressRequired()
		}
	default:
		return time.Time{}, errors.NewInvalidRequest("delivery method must be one of: digital, physical")
	}

	date, err := ParseDate(in.DeliveryDate)
	if err != nil {
		return time.Time{}, errors.NewInvalidRequest(err.Error())
	}
	if !date.After(in.Now) {
		return time.Time{}, errors.NewDateNotFuture()
	}

	return date, nil
}
