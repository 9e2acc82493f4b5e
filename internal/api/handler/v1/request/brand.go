package request

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	"github.com/gettruefans/truefans-api/internal/domain"
)

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type BrandRequest struct {
	Name          string               `json:"name"`
	Address       domain.Address       `json:"address"`
	Location      domain.GeoPoint      `json:"location"`
	DigitalWallet domain.WalletStyling `json:"digital_wallet"`
}

func (req *BrandRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 120)),
	)
	if err != nil {
		return err
	}

	err = validation.ValidateStruct(
		&req.Location,
		validation.Field(&req.Location.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Location.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	)
	if err != nil {
		return err
	}

	w := &req.DigitalWallet
	return validation.ValidateStruct(
		w,
		validation.Field(&w.LogoURL, is.URL),
		validation.Field(&w.PrimaryColor, validation.Match(hexColor)),
		validation.Field(&w.SecondaryColor, validation.Match(hexColor)),
		validation.Field(&w.CardBackground, validation.Match(hexColor)),
		validation.Field(&w.CardTextColor, validation.Match(hexColor)),
		validation.Field(&w.CustomMessage, validation.Length(0, 500)),
	)
}

func (req *BrandRequest) ToDomain() domain.Brand {
	return domain.Brand{
		Name:     req.Name,
		Address:  req.Address,
		Location: req.Location,
		Wallet:   req.DigitalWallet,
	}
}

type PromotionRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Discount    decimal.Decimal `json:"discount"`
	ValidUntil  *time.Time      `json:"valid_until"`
}

func (req *PromotionRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.Description, validation.Length(0, 500)),
	)
}

func (req *PromotionRequest) ToDomain() domain.Promotion {
	return domain.Promotion{
		Title:       req.Title,
		Description: req.Description,
		Discount:    req.Discount,
		ValidUntil:  req.ValidUntil,
	}
}

type LocationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (req *LocationRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.Address, validation.Required),
	)
}

type TemplateRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Benefits     string `json:"benefits"`
	ValidityDays int    `json:"validity_period"`
	Color        string `json:"color"`
	Punches      int    `json:"punches"`
	ImageURL     string `json:"image_url"`
}

func (req *TemplateRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&req.ValidityDays, validation.Min(0)),
		validation.Field(&req.Color, validation.Match(hexColor)),
		validation.Field(&req.Punches, validation.Min(0), validation.Max(domain.MaxPunches)),
		validation.Field(&req.ImageURL, is.URL),
	)
}

func (req *TemplateRequest) ToDomain(brandID uint) domain.PassTemplate {
	return domain.PassTemplate{
		BrandID:      brandID,
		Name:         req.Name,
		Description:  req.Description,
		Benefits:     req.Benefits,
		ValidityDays: req.ValidityDays,
		Color:        req.Color,
		Punches:      req.Punches,
		ImageURL:     req.ImageURL,
	}
}

// NearbyBrandsRequest is the query of a public location search. Radius is
// in meters.
type NearbyBrandsRequest struct {
	Latitude  *float64 `form:"lat"`
	Longitude *float64 `form:"lng"`
	Radius    float64  `form:"radius"`
}

func (req *NearbyBrandsRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Latitude, validation.NotNil, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&req.Longitude, validation.NotNil, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&req.Radius, validation.Min(0.0)),
	)
}

func (req *NearbyBrandsRequest) ToDomain() domain.GeoPoint {
	return domain.GeoPoint{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
}
