package repository

import (
	"context"
	"fmt"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/repository/dao"
)

var ErrTemplateNotFound = dao.ErrTemplateNotFound

type TemplateDAO interface {
	Insert(ctx context.Context, tmpl dao.PassTemplate) (dao.PassTemplate, error)
	FindByID(ctx context.Context, id uint) (dao.PassTemplate, error)
	FindByBrand(ctx context.Context, brandID uint, activeOnly bool) ([]dao.PassTemplate, error)
	Update(ctx context.Context, tmpl dao.PassTemplate) (dao.PassTemplate, error)
	SetActive(ctx context.Context, brandID, id uint, active bool) (dao.PassTemplate, error)
}

type TemplateRepository struct {
	dao TemplateDAO
}

func NewTemplateRepository(dao TemplateDAO) *TemplateRepository {
	return &TemplateRepository{
		dao: dao,
	}
}

func (r *TemplateRepository) Create(ctx context.Context, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	created, err := r.dao.Insert(ctx, templateDomainToDAO(tmpl))
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return templateDAOToDomain(created), nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id uint) (domain.PassTemplate, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return templateDAOToDomain(found), nil
}

func (r *TemplateRepository) FindByBrand(ctx context.Context, brandID uint, activeOnly bool) ([]domain.PassTemplate, error) {
	found, err := r.dao.FindByBrand(ctx, brandID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByBrand -> %w", err)
	}

	templates := make([]domain.PassTemplate, len(found))
	for i, t := range found {
		templates[i] = templateDAOToDomain(t)
	}

	return templates, nil
}

func (r *TemplateRepository) Update(ctx context.Context, tmpl domain.PassTemplate) (domain.PassTemplate, error) {
	updated, err := r.dao.Update(ctx, templateDomainToDAO(tmpl))
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return templateDAOToDomain(updated), nil
}

func (r *TemplateRepository) SetActive(ctx context.Context, brandID, id uint, active bool) (domain.PassTemplate, error) {
	updated, err := r.dao.SetActive(ctx, brandID, id, active)
	if err != nil {
		return domain.PassTemplate{}, fmt.Errorf("r.dao.SetActive -> %w", err)
	}

	return templateDAOToDomain(updated), nil
}

func templateDomainToDAO(t domain.PassTemplate) dao.PassTemplate {
	return dao.PassTemplate{
		ID:           t.ID,
		BrandID:      t.BrandID,
		Name:         t.Name,
		Description:  t.Description,
		Benefits:     t.Benefits,
		ValidityDays: t.ValidityDays,
		Color:        t.Color,
		Punches:      t.Punches,
		ImageURL:     t.ImageURL,
		Active:       t.Active,
	}
}

func templateDAOToDomain(t dao.PassTemplate) domain.PassTemplate {
	return domain.PassTemplate{
		ID:           t.ID,
		BrandID:      t.BrandID,
		Name:         t.Name,
		Description:  t.Description,
		Benefits:     t.Benefits,
		ValidityDays: t.ValidityDays,
		Color:        t.Color,
		Punches:      t.Punches,
		ImageURL:     t.ImageURL,
		Active:       t.Active,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
