package repository

import (
	"context"
	"fmt"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/repository/dao"
)

var (
	ErrNotFound         = dao.ErrNotFound
	ErrDuplicate        = dao.ErrDuplicate
	ErrBrandNotFound    = dao.ErrBrandNotFound
	ErrLocationNotFound = dao.ErrLocationNotFound
)

type BrandDAO interface {
	Insert(ctx context.Context, brand dao.Brand) (dao.Brand, error)
	FindByID(ctx context.Context, id uint) (dao.Brand, error)
	FindByOwner(ctx context.Context, ownerID uint) ([]dao.Brand, error)
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]dao.Brand, error)
	UpdateProfile(ctx context.Context, brand dao.Brand) (dao.Brand, error)
	UpdatePromotion(ctx context.Context, brand dao.Brand) (dao.Brand, error)
	UpdateBilling(ctx context.Context, id uint, customerID, status string) error
	Delete(ctx context.Context, id uint) error
	InsertLocation(ctx context.Context, location dao.Location) (dao.Location, error)
	FindLocations(ctx context.Context, brandID uint) ([]dao.Location, error)
	UpdateLocation(ctx context.Context, location dao.Location) (dao.Location, error)
	DeleteLocation(ctx context.Context, brandID, locationID uint) error
}

type BrandRepository struct {
	dao BrandDAO
}

func NewBrandRepository(dao BrandDAO) *BrandRepository {
	return &BrandRepository{
		dao: dao,
	}
}

func (r *BrandRepository) Create(ctx context.Context, brand domain.Brand) (domain.Brand, error) {
	created, err := r.dao.Insert(ctx, brandDomainToDAO(brand))
	if err != nil {
		return domain.Brand{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return brandDAOToDomain(created), nil
}

func (r *BrandRepository) FindByID(ctx context.Context, id uint) (domain.Brand, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Brand{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return brandDAOToDomain(found), nil
}

func (r *BrandRepository) FindByOwner(ctx context.Context, ownerID uint) ([]domain.Brand, error) {
	found, err := r.dao.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByOwner -> %w", err)
	}

	brands := make([]domain.Brand, len(found))
	for i, b := range found {
		brands[i] = brandDAOToDomain(b)
	}

	return brands, nil
}

func (r *BrandRepository) FindNearby(ctx context.Context, point domain.GeoPoint, radiusMeters float64, limit int) ([]domain.NearbyBrand, error) {
	found, err := r.dao.FindNearby(ctx, point.Latitude, point.Longitude, radiusMeters, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindNearby -> %w", err)
	}

	brands := make([]domain.NearbyBrand, len(found))
	for i, b := range found {
		brand := brandDAOToDomain(b)
		brands[i] = domain.NearbyBrand{Brand: brand, DistanceMeters: point.DistanceMeters(brand.Location)}
	}

	return brands, nil
}

func (r *BrandRepository) UpdateProfile(ctx context.Context, brand domain.Brand) (domain.Brand, error) {
	updated, err := r.dao.UpdateProfile(ctx, brandDomainToDAO(brand))
	if err != nil {
		return domain.Brand{}, fmt.Errorf("r.dao.UpdateProfile -> %w", err)
	}

	return brandDAOToDomain(updated), nil
}

func (r *BrandRepository) UpdatePromotion(ctx context.Context, brandID uint, promo domain.Promotion) (domain.Brand, error) {
	updated, err := r.dao.UpdatePromotion(ctx, dao.Brand{
		ID:                   brandID,
		PromotionTitle:       promo.Title,
		PromotionDescription: promo.Description,
		PromotionDiscount:    promo.Discount,
		PromotionValidUntil:  promo.ValidUntil,
	})
	if err != nil {
		return domain.Brand{}, fmt.Errorf("r.dao.UpdatePromotion -> %w", err)
	}

	return brandDAOToDomain(updated), nil
}

func (r *BrandRepository) UpdateBilling(ctx context.Context, brandID uint, customerID string, status domain.SubscriptionStatus) error {
	if err := r.dao.UpdateBilling(ctx, brandID, customerID, string(status)); err != nil {
		return fmt.Errorf("r.dao.UpdateBilling -> %w", err)
	}

	return nil
}

func (r *BrandRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *BrandRepository) CreateLocation(ctx context.Context, location domain.Location) (domain.Location, error) {
	created, err := r.dao.InsertLocation(ctx, dao.Location{
		BrandID: location.BrandID,
		Name:    location.Name,
		Address: location.Address,
		Phone:   location.Phone,
	})
	if err != nil {
		return domain.Location{}, fmt.Errorf("r.dao.InsertLocation -> %w", err)
	}

	return locationDAOToDomain(created), nil
}

func (r *BrandRepository) FindLocations(ctx context.Context, brandID uint) ([]domain.Location, error) {
	found, err := r.dao.FindLocations(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindLocations -> %w", err)
	}

	locations := make([]domain.Location, len(found))
	for i, l := range found {
		locations[i] = locationDAOToDomain(l)
	}

	return locations, nil
}

func (r *BrandRepository) UpdateLocation(ctx context.Context, location domain.Location) (domain.Location, error) {
	updated, err := r.dao.UpdateLocation(ctx, dao.Location{
		ID:      location.ID,
		BrandID: location.BrandID,
		Name:    location.Name,
		Address: location.Address,
		Phone:   location.Phone,
	})
	if err != nil {
		return domain.Location{}, fmt.Errorf("r.dao.UpdateLocation -> %w", err)
	}

	return locationDAOToDomain(updated), nil
}

func (r *BrandRepository) DeleteLocation(ctx context.Context, brandID, locationID uint) error {
	if err := r.dao.DeleteLocation(ctx, brandID, locationID); err != nil {
		return fmt.Errorf("r.dao.DeleteLocation -> %w", err)
	}

	return nil
}

func brandDomainToDAO(b domain.Brand) dao.Brand {
	return dao.Brand{
		ID:                   b.ID,
		Name:                 b.Name,
		OwnerID:              b.OwnerID,
		Street:               b.Address.Street,
		City:                 b.Address.City,
		State:                b.Address.State,
		ZipCode:              b.Address.ZipCode,
		Country:              b.Address.Country,
		Latitude:             b.Location.Latitude,
		Longitude:            b.Location.Longitude,
		LogoURL:              b.Wallet.LogoURL,
		PrimaryColor:         b.Wallet.PrimaryColor,
		SecondaryColor:       b.Wallet.SecondaryColor,
		CardBackground:       b.Wallet.CardBackground,
		CardTextColor:        b.Wallet.CardTextColor,
		CustomMessage:        b.Wallet.CustomMessage,
		PromotionTitle:       b.Promotion.Title,
		PromotionDescription: b.Promotion.Description,
		PromotionDiscount:    b.Promotion.Discount,
		PromotionValidUntil:  b.Promotion.ValidUntil,
		BillingCustomerID:    b.BillingCustomerID,
		SubscriptionStatus:   string(b.SubscriptionStatus),
	}
}

func brandDAOToDomain(b dao.Brand) domain.Brand {
	return domain.Brand{
		ID:      b.ID,
		Name:    b.Name,
		OwnerID: b.OwnerID,
		Address: domain.Address{
			Street:  b.Street,
			City:    b.City,
			State:   b.State,
			ZipCode: b.ZipCode,
			Country: b.Country,
		},
		Location: domain.GeoPoint{
			Latitude:  b.Latitude,
			Longitude: b.Longitude,
		},
		Wallet: domain.WalletStyling{
			LogoURL:        b.LogoURL,
			PrimaryColor:   b.PrimaryColor,
			SecondaryColor: b.SecondaryColor,
			CardBackground: b.CardBackground,
			CardTextColor:  b.CardTextColor,
			CustomMessage:  b.CustomMessage,
		},
		Promotion: domain.Promotion{
			Title:       b.PromotionTitle,
			Description: b.PromotionDescription,
			Discount:    b.PromotionDiscount,
			ValidUntil:  b.PromotionValidUntil,
		},
		BillingCustomerID:  b.BillingCustomerID,
		SubscriptionStatus: domain.SubscriptionStatus(b.SubscriptionStatus),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func locationDAOToDomain(l dao.Location) domain.Location {
	return domain.Location{
		ID:        l.ID,
		BrandID:   l.BrandID,
		Name:      l.Name,
		Address:   l.Address,
		Phone:     l.Phone,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
