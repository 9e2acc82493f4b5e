package request

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/passid"
)

var (
	errNoCounters  = errors.New("at least one of points, visits, points_delta or visits_delta is required")
	errInvalidPass = errors.New("must be a pass ID")
)

// GeneratePassRequest is the public diner registration form.
type GeneratePassRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Birthday       string `json:"birthday"`
	ReferralSource string `json:"referral_source"`
	BrandID        uint   `json:"brand_id"`
	TemplateID     *uint  `json:"template_id"`
	// RestaurantID is the field name older registration pages send.
	RestaurantID uint `json:"restaurantId"`
}

func (req *GeneratePassRequest) Validate() error {
	if req.BrandID == 0 {
		req.BrandID = req.RestaurantID
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Phone, validation.Required, validation.Length(5, 32)),
		validation.Field(&req.Email, is.Email),
		validation.Field(&req.Birthday, validation.Date("2006-01-02")),
		validation.Field(&req.BrandID, validation.Required),
	)
}

func (req *GeneratePassRequest) ToDomain() domain.Registration {
	return domain.Registration{
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Birthday:       req.Birthday,
		ReferralSource: req.ReferralSource,
		BrandID:        req.BrandID,
		TemplateID:     req.TemplateID,
	}
}

// UpdatePassRequest sets counters to absolute values and/or shifts them.
type UpdatePassRequest struct {
	Points      *int `json:"points"`
	Visits      *int `json:"visits"`
	PointsDelta int  `json:"points_delta"`
	VisitsDelta int  `json:"visits_delta"`
}

func (req *UpdatePassRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Points, validation.Min(0), validation.Max(domain.MaxCounterValue)),
		validation.Field(&req.Visits, validation.Min(0), validation.Max(domain.MaxCounterValue)),
		validation.Field(&req.PointsDelta, validation.Min(-domain.MaxCounterValue), validation.Max(domain.MaxCounterValue)),
		validation.Field(&req.VisitsDelta, validation.Min(-domain.MaxCounterValue), validation.Max(domain.MaxCounterValue)),
	)
	if err != nil {
		return err
	}

	if req.ToDomain().IsEmpty() {
		return errNoCounters
	}

	return nil
}

func (req *UpdatePassRequest) ToDomain() domain.CounterUpdate {
	return domain.CounterUpdate{
		Points:      req.Points,
		Visits:      req.Visits,
		PointsDelta: req.PointsDelta,
		VisitsDelta: req.VisitsDelta,
	}
}

type ValidatePassRequest struct {
	PassID  string `json:"pass_id"`
	BrandID uint   `json:"brand_id"`
}

func (req *ValidatePassRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.PassID, validation.Required, validation.By(validPassID)),
	)
}

func validPassID(value interface{}) error {
	s, _ := value.(string)
	if !passid.Valid(s) {
		return errInvalidPass
	}

	return nil
}
