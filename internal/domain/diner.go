package domain

import "time"

type Diner struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email,omitempty"`
	Birthday       string    `json:"birthday,omitempty"`
	ReferralSource string    `json:"referral_source,omitempty"`
	BrandID        uint      `json:"brand_id"`
	TemplateID     *uint     `json:"template_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Registration is what a diner submits from the public QR link.
type Registration struct {
	Name           string
	Phone          string
	Email          string
	Birthday       string
	ReferralSource string
	BrandID        uint
	TemplateID     *uint
}

// ValidationResult is what staff see after scanning a pass.
type ValidationResult struct {
	IsValid bool       `json:"is_valid"`
	Pass    IssuedPass `json:"-"`
	Diner   DinerRef   `json:"diner"`
	Points  int        `json:"points"`
	Visits  int        `json:"visits"`
}

type DinerRef struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
