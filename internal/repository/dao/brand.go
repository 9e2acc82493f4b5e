package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const earthRadiusMeters = 6371000.0

type Brand struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	OwnerID uint   `gorm:"not null;index"`

	Street  string
	City    string
	State   string
	ZipCode string
	Country string

	Latitude  float64
	Longitude float64

	LogoURL        string
	PrimaryColor   string
	SecondaryColor string
	CardBackground string
	CardTextColor  string
	CustomMessage  string

	PromotionTitle       string
	PromotionDescription string
	PromotionDiscount    decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	PromotionValidUntil  *time.Time

	BillingCustomerID  string
	SubscriptionStatus string `gorm:"not null;default:trial"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Location struct {
	ID        uint   `gorm:"primaryKey"`
	BrandID   uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	Address   string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Columns an owner may edit through UpdateBrand.
var brandProfileColumns = []string{
	"name", "street", "city", "state", "zip_code", "country", "latitude", "longitude",
	"logo_url", "primary_color", "secondary_color", "card_background", "card_text_color", "custom_message",
}

var brandPromotionColumns = []string{
	"promotion_title", "promotion_description", "promotion_discount", "promotion_valid_until",
}

type BrandDAO struct {
	db *gorm.DB
}

func NewBrandDAO(db *gorm.DB) *BrandDAO {
	return &BrandDAO{
		db: db,
	}
}

func (d *BrandDAO) Insert(ctx context.Context, brand Brand) (Brand, error) {
	if brand.SubscriptionStatus == "" {
		brand.SubscriptionStatus = "trial"
	}

	result := d.db.WithContext(ctx).Create(&brand)
	if result.Error != nil {
		return Brand{}, result.Error
	}

	return brand, nil
}

func (d *BrandDAO) FindByID(ctx context.Context, id uint) (Brand, error) {
	var brand Brand

	result := d.db.WithContext(ctx).First(&brand, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Brand{}, ErrBrandNotFound
		}

		return Brand{}, result.Error
	}

	return brand, nil
}

func (d *BrandDAO) FindByOwner(ctx context.Context, ownerID uint) ([]Brand, error) {
	var brands []Brand

	result := d.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&brands)
	if result.Error != nil {
		return nil, result.Error
	}

	return brands, nil
}

// distanceSQL is the haversine distance in meters from a row's location to
// a point. Vars: earth radius, lat, lat, lng.
const distanceSQL = "(? * 2 * ASIN(LEAST(1, SQRT(POWER(SIN(RADIANS(latitude - ?) / 2), 2) + " +
	"COS(RADIANS(?)) * COS(RADIANS(latitude)) * POWER(SIN(RADIANS(longitude - ?) / 2), 2)))))"

// FindNearby returns brands with a location within radiusMeters of
// (lat, lng), nearest first.
func (d *BrandDAO) FindNearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]Brand, error) {
	var brands []Brand

	distance := clause.Expr{SQL: distanceSQL, Vars: []interface{}{earthRadiusMeters, lat, lat, lng}}

	result := d.db.WithContext(ctx).
		Where("NOT (latitude = 0 AND longitude = 0)").
		Where("? <= ?", distance, radiusMeters).
		Order(clause.OrderBy{Expression: distance}).
		Limit(limit).
		Find(&brands)
	if result.Error != nil {
		return nil, result.Error
	}

	return brands, nil
}

func (d *BrandDAO) UpdateProfile(ctx context.Context, brand Brand) (Brand, error) {
	return d.updateColumns(ctx, brand, brandProfileColumns)
}

func (d *BrandDAO) UpdatePromotion(ctx context.Context, brand Brand) (Brand, error) {
	return d.updateColumns(ctx, brand, brandPromotionColumns)
}

func (d *BrandDAO) UpdateBilling(ctx context.Context, id uint, customerID, status string) error {
	result := d.db.WithContext(ctx).Model(&Brand{}).Where("id = ?", id).Updates(map[string]interface{}{
		"billing_customer_id": customerID,
		"subscription_status": status,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBrandNotFound
	}

	return nil
}

func (d *BrandDAO) updateColumns(ctx context.Context, brand Brand, columns []string) (Brand, error) {
	result := d.db.WithContext(ctx).Model(&Brand{ID: brand.ID}).Select(columns).Updates(&brand)
	if result.Error != nil {
		return Brand{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Brand{}, ErrBrandNotFound
	}

	return d.FindByID(ctx, brand.ID)
}

// Delete soft-deletes the brand; its passes and diners are kept.
func (d *BrandDAO) Delete(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&Brand{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBrandNotFound
	}

	return nil
}

func (d *BrandDAO) InsertLocation(ctx context.Context, location Location) (Location, error) {
	result := d.db.WithContext(ctx).Create(&location)
	if result.Error != nil {
		return Location{}, result.Error
	}

	return location, nil
}

func (d *BrandDAO) FindLocations(ctx context.Context, brandID uint) ([]Location, error) {
	var locations []Location

	result := d.db.WithContext(ctx).Where("brand_id = ?", brandID).Order("id").Find(&locations)
	if result.Error != nil {
		return nil, result.Error
	}

	return locations, nil
}

func (d *BrandDAO) UpdateLocation(ctx context.Context, location Location) (Location, error) {
	result := d.db.WithContext(ctx).Model(&Location{}).
		Where("id = ? AND brand_id = ?", location.ID, location.BrandID).
		Select("name", "address", "phone").
		Updates(&location)
	if result.Error != nil {
		return Location{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Location{}, ErrLocationNotFound
	}

	var updated Location
	if err := d.db.WithContext(ctx).First(&updated, location.ID).Error; err != nil {
		return Location{}, err
	}

	return updated, nil
}

func (d *BrandDAO) DeleteLocation(ctx context.Context, brandID, locationID uint) error {
	result := d.db.WithContext(ctx).Where("brand_id = ?", brandID).Delete(&Location{}, locationID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLocationNotFound
	}

	return nil
}
