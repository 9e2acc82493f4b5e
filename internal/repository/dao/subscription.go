package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Subscription struct {
	ID                   uint   `gorm:"primaryKey"`
	BrandID              uint   `gorm:"not null;index"`
	StripeSubscriptionID string `gorm:"not null;uniqueIndex"`
	Status               string `gorm:"not null"`
	CancelAtPeriodEnd    bool   `gorm:"not null;default:false"`
	CurrentPeriodEnd     time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type SubscriptionDAO struct {
	db *gorm.DB
}

func NewSubscriptionDAO(db *gorm.DB) *SubscriptionDAO {
	return &SubscriptionDAO{
		db: db,
	}
}

func (d *SubscriptionDAO) Insert(ctx context.Context, sub Subscription) (Subscription, error) {
	result := d.db.WithContext(ctx).Create(&sub)
	if result.Error != nil {
		if isUniqueViolation(result.Error, "") {
			return Subscription{}, ErrDuplicate
		}

		return Subscription{}, result.Error
	}

	return sub, nil
}

// FindByBrand returns the brand's most recent subscription.
func (d *SubscriptionDAO) FindByBrand(ctx context.Context, brandID uint) (Subscription, error) {
	var sub Subscription

	result := d.db.WithContext(ctx).Where("brand_id = ?", brandID).Order("created_at DESC, id DESC").First(&sub)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Subscription{}, ErrSubscriptionNotFound
		}

		return Subscription{}, result.Error
	}

	return sub, nil
}

func (d *SubscriptionDAO) Update(ctx context.Context, sub Subscription) (Subscription, error) {
	result := d.db.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", sub.ID).
		Select("status", "cancel_at_period_end", "current_period_end").
		Updates(&sub)
	if result.Error != nil {
		return Subscription{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Subscription{}, ErrSubscriptionNotFound
	}

	return sub, nil
}
