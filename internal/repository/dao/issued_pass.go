package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const serialConstraint = "idx_issued_passes_serial"

type IssuedPass struct {
	ID          uint   `gorm:"primaryKey"`
	Serial      string `gorm:"size:32;not null;uniqueIndex:idx_issued_passes_serial"`
	DinerID     uint   `gorm:"not null;index"`
	DinerName   string `gorm:"not null"`
	DinerPhone  string `gorm:"not null;index:idx_issued_passes_dedup,priority:3"`
	BrandID     uint   `gorm:"not null;index:idx_issued_passes_dedup,priority:1"`
	TemplateID  *uint  `gorm:"index:idx_issued_passes_dedup,priority:2"`
	Points      int    `gorm:"not null;default:0"`
	Visits      int    `gorm:"not null;default:0"`
	Status      string `gorm:"not null;index"`
	IsActive    bool   `gorm:"not null"`
	ArtifactURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastUsedAt  *time.Time
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// PassFilter narrows FindByBrand. Zero values match everything.
type PassFilter struct {
	Status     string
	ActiveOnly bool
	DinerPhone string
}

// CounterUpdate is applied as absolute value first, then delta. Results
// never go below zero.
type CounterUpdate struct {
	Points      *int
	Visits      *int
	PointsDelta int
	VisitsDelta int
}

type IssuedPassDAO struct {
	db *gorm.DB
}

func NewIssuedPassDAO(db *gorm.DB) *IssuedPassDAO {
	return &IssuedPassDAO{
		db: db,
	}
}

func (d *IssuedPassDAO) Insert(ctx context.Context, pass IssuedPass) (IssuedPass, error) {
	result := d.db.WithContext(ctx).Create(&pass)
	if result.Error != nil {
		if isUniqueViolation(result.Error, serialConstraint) {
			return IssuedPass{}, ErrDuplicate
		}

		return IssuedPass{}, result.Error
	}

	return pass, nil
}

func (d *IssuedPassDAO) FindBySerial(ctx context.Context, serial string) (IssuedPass, error) {
	var pass IssuedPass

	result := d.db.WithContext(ctx).First(&pass, "serial = ?", serial)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return IssuedPass{}, ErrIssuedPassNotFound
		}

		return IssuedPass{}, result.Error
	}

	return pass, nil
}

func (d *IssuedPassDAO) FindByBrand(ctx context.Context, brandID uint, filter PassFilter) ([]IssuedPass, error) {
	var passes []IssuedPass

	query := d.db.WithContext(ctx).Where("brand_id = ?", brandID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.DinerPhone != "" {
		query = query.Where("diner_phone = ?", filter.DinerPhone)
	}

	result := query.Order("created_at DESC, id DESC").Find(&passes)
	if result.Error != nil {
		return nil, result.Error
	}

	return passes, nil
}

// FindActiveForDiner returns the newest active pass a phone number holds for
// the brand and template.
func (d *IssuedPassDAO) FindActiveForDiner(ctx context.Context, brandID uint, templateID *uint, phone string, now time.Time) (IssuedPass, error) {
	var pass IssuedPass

	query := d.db.WithContext(ctx).
		Where("brand_id = ? AND diner_phone = ? AND status = ? AND is_active = ? AND expires_at > ?",
			brandID, phone, "active", true, now)
	if templateID != nil {
		query = query.Where("template_id = ?", *templateID)
	} else {
		query = query.Where("template_id IS NULL")
	}

	result := query.Order("created_at DESC, id DESC").First(&pass)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return IssuedPass{}, ErrIssuedPassNotFound
		}

		return IssuedPass{}, result.Error
	}

	return pass, nil
}

func (d *IssuedPassDAO) SetStatus(ctx context.Context, serial, status string, active bool) (IssuedPass, error) {
	return d.update(ctx, serial, map[string]interface{}{
		"status":    status,
		"is_active": active,
	})
}

// Commit marks a reserved pass usable and records where its artifact lives.
func (d *IssuedPassDAO) Commit(ctx context.Context, serial, artifactURL string) (IssuedPass, error) {
	return d.update(ctx, serial, map[string]interface{}{
		"status":       "active",
		"is_active":    true,
		"artifact_url": artifactURL,
	})
}

func (d *IssuedPassDAO) UpdateCounters(ctx context.Context, serial string, u CounterUpdate) (IssuedPass, error) {
	values := map[string]interface{}{}
	if expr, ok := counterExpr("points", u.Points, u.PointsDelta); ok {
		values["points"] = expr
	}
	if expr, ok := counterExpr("visits", u.Visits, u.VisitsDelta); ok {
		values["visits"] = expr
	}
	if len(values) == 0 {
		return d.FindBySerial(ctx, serial)
	}

	return d.update(ctx, serial, values)
}

func counterExpr(column string, absolute *int, delta int) (interface{}, bool) {
	switch {
	case absolute != nil:
		return gorm.Expr("GREATEST(?::bigint, 0)", *absolute+delta), true
	case delta != 0:
		return gorm.Expr("GREATEST("+column+" + ?, 0)", delta), true
	default:
		return nil, false
	}
}

// RecordVisit atomically adds one visit to a usable pass of the brand. A
// pass that is foreign, inactive or expired is reported as not found.
func (d *IssuedPassDAO) RecordVisit(ctx context.Context, serial string, brandID uint, now time.Time) (IssuedPass, error) {
	var pass IssuedPass

	result := d.db.WithContext(ctx).Model(&pass).Clauses(clause.Returning{}).
		Where("serial = ? AND brand_id = ? AND is_active = ? AND status = ? AND expires_at > ?",
			serial, brandID, true, "active", now).
		Updates(map[string]interface{}{
			"visits":       gorm.Expr("visits + ?", 1),
			"last_used_at": now,
		})
	if result.Error != nil {
		return IssuedPass{}, result.Error
	}
	if result.RowsAffected == 0 {
		return IssuedPass{}, ErrIssuedPassNotFound
	}

	return pass, nil
}

// ExpireDue flips active passes of the brand whose expiry has passed.
func (d *IssuedPassDAO) ExpireDue(ctx context.Context, brandID uint, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Model(&IssuedPass{}).
		Where("brand_id = ? AND status = ? AND expires_at <= ?", brandID, "active", now).
		Updates(map[string]interface{}{
			"status":    "expired",
			"is_active": false,
		})

	return result.RowsAffected, result.Error
}

func (d *IssuedPassDAO) update(ctx context.Context, serial string, values map[string]interface{}) (IssuedPass, error) {
	var pass IssuedPass

	result := d.db.WithContext(ctx).Model(&pass).Clauses(clause.Returning{}).
		Where("serial = ?", serial).
		Updates(values)
	if result.Error != nil {
		return IssuedPass{}, result.Error
	}
	if result.RowsAffected == 0 {
		return IssuedPass{}, ErrIssuedPassNotFound
	}

	return pass, nil
}
