package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const EarthRadiusMeters = 6371000.0

// IsSet reports whether a location was given. (0, 0) means unset.
func (p GeoPoint) IsSet() bool {
	return p.Latitude != 0 || p.Longitude != 0
}

// DistanceMeters is the great-circle (haversine) distance to q.
func (p GeoPoint) DistanceMeters(q GeoPoint) float64 {
	lat1, lat2 := p.Latitude*math.Pi/180, q.Latitude*math.Pi/180
	dLat := lat2 - lat1
	dLng := (q.Longitude - p.Longitude) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WalletStyling is what a brand contributes to every pass it issues.
type WalletStyling struct {
	LogoURL        string `json:"logo_url"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	CardBackground string `json:"card_background"`
	CardTextColor  string `json:"card_text_color"`
	CustomMessage  string `json:"custom_message"`
}

type Promotion struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Discount    decimal.Decimal `json:"discount"`
	ValidUntil  *time.Time      `json:"valid_until,omitempty"`
}

// IsCurrent reports whether the promotion is set and not past its end date.
func (p Promotion) IsCurrent(now time.Time) bool {
	if p.Title == "" {
		return false
	}
	return p.ValidUntil == nil || now.Before(*p.ValidUntil)
}

type Brand struct {
	ID                 uint               `json:"id"`
	Name               string             `json:"name"`
	OwnerID            uint               `json:"owner_id"`
	Address            Address            `json:"address"`
	Location           GeoPoint           `json:"location"`
	Wallet             WalletStyling      `json:"digital_wallet"`
	Promotion          Promotion          `json:"current_promotion"`
	BillingCustomerID  string             `json:"-"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type Location struct {
	ID        uint      `json:"id"`
	BrandID   uint      `json:"brand_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NearbyBrand is a brand found by a location search.
type NearbyBrand struct {
	Brand
	DistanceMeters float64
}
