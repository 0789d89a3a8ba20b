package httpserver

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"gitlab.com/ersapp/ers-service/internal/errs"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface. It covers request shape only; lifecycle rules live in the
// service layer.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator creates a new RequestValidator.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks the bound request struct and reports failures as
// InvalidInput with readable field messages.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.InvalidInputf("invalid request body")
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fe.Field()+" must be one of: "+fe.Param())
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		default:
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag()+" validation")
		}
	}
	return errs.InvalidInputf("%s", strings.Join(msgs, "; "))
}
