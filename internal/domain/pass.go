package domain

import "time"

const (
	MaxPunches          = 5
	DefaultValidityDays = 30
	// MaxCounterValue bounds absolute counter values and single deltas.
	MaxCounterValue = 1_000_000_000
)

// PassTemplate is the reusable pass design a diner registers against.
type PassTemplate struct {
	ID           uint      `json:"id"`
	BrandID      uint      `json:"brand_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Benefits     string    `json:"benefits"`
	ValidityDays int       `json:"validity_period"`
	Color        string    `json:"color"`
	Punches      int       `json:"punches"`
	ImageURL     string    `json:"image_url"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PassStatus string

const (
	PassPending PassStatus = "pending"
	PassActive  PassStatus = "active"
	PassFailed  PassStatus = "failed"
	PassExpired PassStatus = "expired"
	PassRevoked PassStatus = "revoked"
)

// IssuedPass is a diner-specific instance of a template.
type IssuedPass struct {
	ID          uint       `json:"-"`
	Serial      string     `json:"pass_id"`
	DinerID     uint       `json:"diner_id"`
	DinerName   string     `json:"diner_name"`
	DinerPhone  string     `json:"diner_phone"`
	BrandID     uint       `json:"brand_id"`
	TemplateID  *uint      `json:"template_id,omitempty"`
	Points      int        `json:"points"`
	Visits      int        `json:"visits"`
	Status      PassStatus `json:"status"`
	IsActive    bool       `json:"is_active"`
	ArtifactURL string     `json:"download_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

func (p IssuedPass) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// PassFilter narrows brand pass listings. Zero values mean "any".
type PassFilter struct {
	Status     PassStatus
	ActiveOnly bool
	// DinerPhone looks up the passes one diner holds.
	DinerPhone string
}

// CounterUpdate sets counters to absolute values and/or shifts them.
// Absolute values are applied before deltas.
type CounterUpdate struct {
	Points      *int
	Visits      *int
	PointsDelta int
	VisitsDelta int
}

func (u CounterUpdate) IsEmpty() bool {
	return u.Points == nil && u.Visits == nil && u.PointsDelta == 0 && u.VisitsDelta == 0
}
