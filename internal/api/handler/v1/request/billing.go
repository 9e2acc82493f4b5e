package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type SubscribeRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	Email           string `json:"email"`
}

func (req *SubscribeRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.PaymentMethodID, validation.Required),
		validation.Field(&req.Email, validation.Required, is.Email),
	)
}

type UpdateSubscriptionRequest struct {
	Cancel *bool `json:"cancel"`
}

func (req *UpdateSubscriptionRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Cancel, validation.NotNil),
	)
}
