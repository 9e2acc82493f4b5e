package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Diner struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	Phone          string `gorm:"not null;index"`
	Email          string
	Birthday       string
	ReferralSource string
	BrandID        uint  `gorm:"not null;index"`
	TemplateID     *uint `gorm:"index"`
	CreatedAt      time.Time
}

type DinerDAO struct {
	db *gorm.DB
}

func NewDinerDAO(db *gorm.DB) *DinerDAO {
	return &DinerDAO{
		db: db,
	}
}

func (d *DinerDAO) Insert(ctx context.Context, diner Diner) (Diner, error) {
	result := d.db.WithContext(ctx).Create(&diner)
	if result.Error != nil {
		return Diner{}, result.Error
	}

	return diner, nil
}

func (d *DinerDAO) FindByID(ctx context.Context, id uint) (Diner, error) {
	var diner Diner

	result := d.db.WithContext(ctx).First(&diner, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Diner{}, ErrDinerNotFound
		}

		return Diner{}, result.Error
	}

	return diner, nil
}

func (d *DinerDAO) FindByBrand(ctx context.Context, brandID uint) ([]Diner, error) {
	var diners []Diner

	result := d.db.WithContext(ctx).Where("brand_id = ?", brandID).Order("created_at DESC, id DESC").Find(&diners)
	if result.Error != nil {
		return nil, result.Error
	}

	return diners, nil
}

func (d *DinerDAO) Delete(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&Diner{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDinerNotFound
	}

	return nil
}
