package repository

import (
	"context"
	"fmt"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/repository/dao"
)

var ErrSubscriptionNotFound = dao.ErrSubscriptionNotFound

type SubscriptionDAO interface {
	Insert(ctx context.Context, sub dao.Subscription) (dao.Subscription, error)
	FindByBrand(ctx context.Context, brandID uint) (dao.Subscription, error)
	Update(ctx context.Context, sub dao.Subscription) (dao.Subscription, error)
}

type SubscriptionRepository struct {
	dao SubscriptionDAO
}

func NewSubscriptionRepository(dao SubscriptionDAO) *SubscriptionRepository {
	return &SubscriptionRepository{
		dao: dao,
	}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	created, err := r.dao.Insert(ctx, subscriptionDomainToDAO(sub))
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return subscriptionDAOToDomain(created), nil
}

func (r *SubscriptionRepository) FindByBrand(ctx context.Context, brandID uint) (domain.Subscription, error) {
	found, err := r.dao.FindByBrand(ctx, brandID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("r.dao.FindByBrand -> %w", err)
	}

	return subscriptionDAOToDomain(found), nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	updated, err := r.dao.Update(ctx, subscriptionDomainToDAO(sub))
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return subscriptionDAOToDomain(updated), nil
}

func subscriptionDomainToDAO(s domain.Subscription) dao.Subscription {
	return dao.Subscription{
		ID:                   s.ID,
		BrandID:              s.BrandID,
		StripeSubscriptionID: s.StripeSubscriptionID,
		Status:               s.Status,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func subscriptionDAOToDomain(s dao.Subscription) domain.Subscription {
	return domain.Subscription{
		ID:                   s.ID,
		BrandID:              s.BrandID,
		StripeSubscriptionID: s.StripeSubscriptionID,
		Status:               s.Status,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}
