package repository

import (
	"context"
	"fmt"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/repository/dao"
)

var ErrDinerNotFound = dao.ErrDinerNotFound

type DinerDAO interface {
	Insert(ctx context.Context, diner dao.Diner) (dao.Diner, error)
	FindByID(ctx context.Context, id uint) (dao.Diner, error)
	FindByBrand(ctx context.Context, brandID uint) ([]dao.Diner, error)
	Delete(ctx context.Context, id uint) error
}

type DinerRepository struct {
	dao DinerDAO
}

func NewDinerRepository(dao DinerDAO) *DinerRepository {
	return &DinerRepository{
		dao: dao,
	}
}

func (r *DinerRepository) Create(ctx context.Context, diner domain.Diner) (domain.Diner, error) {
	created, err := r.dao.Insert(ctx, dao.Diner{
		Name:           diner.Name,
		Phone:          diner.Phone,
		Email:          diner.Email,
		Birthday:       diner.Birthday,
		ReferralSource: diner.ReferralSource,
		BrandID:        diner.BrandID,
		TemplateID:     diner.TemplateID,
	})
	if err != nil {
		return domain.Diner{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return dinerDAOToDomain(created), nil
}

func (r *DinerRepository) FindByID(ctx context.Context, id uint) (domain.Diner, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Diner{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return dinerDAOToDomain(found), nil
}

func (r *DinerRepository) FindByBrand(ctx context.Context, brandID uint) ([]domain.Diner, error) {
	found, err := r.dao.FindByBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByBrand -> %w", err)
	}

	diners := make([]domain.Diner, len(found))
	for i, d := range found {
		diners[i] = dinerDAOToDomain(d)
	}

	return diners, nil
}

func (r *DinerRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func dinerDAOToDomain(d dao.Diner) domain.Diner {
	return domain.Diner{
		ID:             d.ID,
		Name:           d.Name,
		Phone:          d.Phone,
		Email:          d.Email,
		Birthday:       d.Birthday,
		ReferralSource: d.ReferralSource,
		BrandID:        d.BrandID,
		TemplateID:     d.TemplateID,
		CreatedAt:      d.CreatedAt,
	}
}
