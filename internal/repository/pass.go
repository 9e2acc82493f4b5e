package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/repository/dao"
)

var ErrIssuedPassNotFound = dao.ErrIssuedPassNotFound

// IssuedPassDAO is the pass storage contract. dao.IssuedPassDAO (Postgres)
// and dao.MongoIssuedPassDAO both satisfy it.
type IssuedPassDAO interface {
	Insert(ctx context.Context, pass dao.IssuedPass) (dao.IssuedPass, error)
	FindBySerial(ctx context.Context, serial string) (dao.IssuedPass, error)
	FindByBrand(ctx context.Context, brandID uint, filter dao.PassFilter) ([]dao.IssuedPass, error)
	FindActiveForDiner(ctx context.Context, brandID uint, templateID *uint, phone string, now time.Time) (dao.IssuedPass, error)
	SetStatus(ctx context.Context, serial, status string, active bool) (dao.IssuedPass, error)
	Commit(ctx context.Context, serial, artifactURL string) (dao.IssuedPass, error)
	UpdateCounters(ctx context.Context, serial string, u dao.CounterUpdate) (dao.IssuedPass, error)
	RecordVisit(ctx context.Context, serial string, brandID uint, now time.Time) (dao.IssuedPass, error)
	ExpireDue(ctx context.Context, brandID uint, now time.Time) (int64, error)
}

var (
	_ IssuedPassDAO = (*dao.IssuedPassDAO)(nil)
	_ IssuedPassDAO = (*dao.MongoIssuedPassDAO)(nil)
)

type PassRepository struct {
	dao IssuedPassDAO
}

func NewPassRepository(dao IssuedPassDAO) *PassRepository {
	return &PassRepository{
		dao: dao,
	}
}

func (r *PassRepository) Create(ctx context.Context, pass domain.IssuedPass) (domain.IssuedPass, error) {
	created, err := r.dao.Insert(ctx, passDomainToDAO(pass))
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return passDAOToDomain(created), nil
}

func (r *PassRepository) FindBySerial(ctx context.Context, serial string) (domain.IssuedPass, error) {
	found, err := r.dao.FindBySerial(ctx, serial)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("r.dao.FindBySerial -> %w", err)
	}

	return passDAOToDomain(found), nil
}

func (r *PassRepository) FindByBrand(ctx context.Context, brandID uint, filter domain.PassFilter) ([]domain.IssuedPass, error) {
	found, err := r.dao.FindByBrand(ctx, brandID, dao.PassFilter{
		Status:     string(filter.Status),
		ActiveOnly: filter.ActiveOnly,
		DinerPhone: filter.DinerPhone,
	})
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByBrand -> %w", err)
	}

	passes := make([]domain.IssuedPass, len(found))
	for i, p := range found {
		passes[i] = passDAOToDomain(p)
	}

	return passes, nil
}

func (r *PassRepository) FindActiveForDiner(ctx context.Context, brandID uint, templateID *uint, phone string, now time.Time) (domain.IssuedPass, error) {
	found, err := r.dao.FindActiveForDiner(ctx, brandID, templateID, phone, now)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("r.dao.FindActiveForDiner -> %w", err)
	}

	return passDAOToDomain(found), nil
}

func (r *PassRepository) SetStatus(ctx context.Context, serial string, status domain.PassStatus, active bool) (domain.IssuedPass, error) {
	updated, err := r.dao.SetStatus(ctx, serial, string(status), active)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("r.dao.SetStatus -> %w", err)
	}

	return passDAOToDomain(updated), nil
}

func (r *PassRepository) Commit(ctx context.Context, serial, artifactURL string) (domain.IssuedPass, error) {
	updated, err := r.dao.Commit(ctx, serial, artifactURL)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("r.dao.Commit -> %w", err)
	}

	return passDAOToDomain(updated), nil
}

func (r *PassRepository) UpdateCounters(ctx context.Context, serial string, u domain.CounterUpdate) (domain.IssuedPass, error) {
	updated, err := r.dao.UpdateCounters(ctx, serial, dao.CounterUpdate{
		Points:      u.Points,
		Visits:      u.Visits,
		PointsDelta: u.PointsDelta,
		VisitsDelta: u.VisitsDelta,
	})
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("r.dao.UpdateCounters -> %w", err)
	}

	return passDAOToDomain(updated), nil
}

func (r *PassRepository) RecordVisit(ctx context.Context, serial string, brandID uint, now time.Time) (domain.IssuedPass, error) {
	updated, err := r.dao.RecordVisit(ctx, serial, brandID, now)
	if err != nil {
		return domain.IssuedPass{}, fmt.Errorf("r.dao.RecordVisit -> %w", err)
	}

	return passDAOToDomain(updated), nil
}

func (r *PassRepository) ExpireDue(ctx context.Context, brandID uint, now time.Time) (int64, error) {
	n, err := r.dao.ExpireDue(ctx, brandID, now)
	if err != nil {
		return 0, fmt.Errorf("r.dao.ExpireDue -> %w", err)
	}

	return n, nil
}

func passDomainToDAO(p domain.IssuedPass) dao.IssuedPass {
	return dao.IssuedPass{
		ID:          p.ID,
		Serial:      p.Serial,
		DinerID:     p.DinerID,
		DinerName:   p.DinerName,
		DinerPhone:  p.DinerPhone,
		BrandID:     p.BrandID,
		TemplateID:  p.TemplateID,
		Points:      p.Points,
		Visits:      p.Visits,
		Status:      string(p.Status),
		IsActive:    p.IsActive,
		ArtifactURL: p.ArtifactURL,
		CreatedAt:   p.CreatedAt,
		LastUsedAt:  p.LastUsedAt,
		ExpiresAt:   p.ExpiresAt,
	}
}

func passDAOToDomain(p dao.IssuedPass) domain.IssuedPass {
	return domain.IssuedPass{
		ID:          p.ID,
		Serial:      p.Serial,
		DinerID:     p.DinerID,
		DinerName:   p.DinerName,
		DinerPhone:  p.DinerPhone,
		BrandID:     p.BrandID,
		TemplateID:  p.TemplateID,
		Points:      p.Points,
		Visits:      p.Visits,
		Status:      domain.PassStatus(p.Status),
		IsActive:    p.IsActive,
		ArtifactURL: p.ArtifactURL,
		CreatedAt:   p.CreatedAt,
		LastUsedAt:  p.LastUsedAt,
		ExpiresAt:   p.ExpiresAt,
	}
}
