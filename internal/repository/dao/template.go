package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type PassTemplate struct {
	ID           uint   `gorm:"primaryKey"`
	BrandID      uint   `gorm:"not null;index"`
	Name         string `gorm:"not null"`
	Description  string
	Benefits     string
	ValidityDays int `gorm:"not null;default:30"`
	Color        string
	Punches      int `gorm:"not null;default:0;check:punches BETWEEN 0 AND 5"`
	ImageURL     string
	Active       bool `gorm:"not null;default:true;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TemplateDAO struct {
	db *gorm.DB
}

func NewTemplateDAO(db *gorm.DB) *TemplateDAO {
	return &TemplateDAO{
		db: db,
	}
}

func (d *TemplateDAO) Insert(ctx context.Context, tmpl PassTemplate) (PassTemplate, error) {
	// New templates always start active.
	tmpl.Active = true

	result := d.db.WithContext(ctx).Create(&tmpl)
	if result.Error != nil {
		return PassTemplate{}, result.Error
	}

	return tmpl, nil
}

func (d *TemplateDAO) FindByID(ctx context.Context, id uint) (PassTemplate, error) {
	var tmpl PassTemplate

	result := d.db.WithContext(ctx).First(&tmpl, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return PassTemplate{}, ErrTemplateNotFound
		}

		return PassTemplate{}, result.Error
	}

	return tmpl, nil
}

func (d *TemplateDAO) FindByBrand(ctx context.Context, brandID uint, activeOnly bool) ([]PassTemplate, error) {
	var templates []PassTemplate

	query := d.db.WithContext(ctx).Where("brand_id = ?", brandID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	result := query.Order("id").Find(&templates)
	if result.Error != nil {
		return nil, result.Error
	}

	return templates, nil
}

func (d *TemplateDAO) Update(ctx context.Context, tmpl PassTemplate) (PassTemplate, error) {
	result := d.db.WithContext(ctx).Model(&PassTemplate{}).
		Where("id = ? AND brand_id = ?", tmpl.ID, tmpl.BrandID).
		Select("name", "description", "benefits", "validity_days", "color", "punches", "image_url").
		Updates(&tmpl)
	if result.Error != nil {
		return PassTemplate{}, result.Error
	}
	if result.RowsAffected == 0 {
		return PassTemplate{}, ErrTemplateNotFound
	}

	return d.FindByID(ctx, tmpl.ID)
}

// SetActive toggles a template. Templates are never deleted so passes
// issued from them stay resolvable.
func (d *TemplateDAO) SetActive(ctx context.Context, brandID, id uint, active bool) (PassTemplate, error) {
	result := d.db.WithContext(ctx).Model(&PassTemplate{}).
		Where("id = ? AND brand_id = ?", id, brandID).
		Update("active", active)
	if result.Error != nil {
		return PassTemplate{}, result.Error
	}
	if result.RowsAffected == 0 {
		return PassTemplate{}, ErrTemplateNotFound
	}

	return d.FindByID(ctx, id)
}
