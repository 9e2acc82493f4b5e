package response

import (
	"time"

	"github.com/gettruefans/truefans-api/internal/domain"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type IssuePassResponse struct {
	Success     bool      `json:"success"`
	PassID      string    `json:"pass_id"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type PassResponse struct {
	Success bool              `json:"success"`
	Pass    domain.IssuedPass `json:"pass"`
}

type ValidationResponse struct {
	Success bool `json:"success"`
	domain.ValidationResult
}

// PublicTemplateResponse is what the registration page renders before a
// diner signs up.
type PublicTemplateResponse struct {
	BrandID      uint                 `json:"brand_id"`
	BrandName    string               `json:"brand_name"`
	Wallet       domain.WalletStyling `json:"digital_wallet"`
	Promotion    *domain.Promotion    `json:"current_promotion,omitempty"`
	TemplateID   uint                 `json:"template_id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Benefits     string               `json:"benefits"`
	ValidityDays int                  `json:"validity_period"`
	Color        string               `json:"color"`
	Punches      int                  `json:"punches"`
	ImageURL     string               `json:"image_url"`
}

// NearbyBrandResponse is a brand found by a public location search.
type NearbyBrandResponse struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Address        domain.Address  `json:"address"`
	Location       domain.GeoPoint `json:"location"`
	LogoURL        string          `json:"logo_url"`
	DistanceMeters float64         `json:"distance_meters"`
}

type Healthcheck struct {
	Status string `json:"status"`
}
