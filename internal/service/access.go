package service

import (
	"context"
	"fmt"

	"github.com/gettruefans/truefans-api/internal/domain"
)

type BrandFinder interface {
	FindByID(ctx context.Context, id uint) (domain.Brand, error)
}

// authorizeBrand loads a brand the user owns, or works at when allowStaff
// is set.
func authorizeBrand(ctx context.Context, brands BrandFinder, user domain.User, brandID uint, allowStaff bool) (domain.Brand, error) {
	brand, err := brands.FindByID(ctx, brandID)
	if err != nil {
		return domain.Brand{}, fmt.Errorf("brands.FindByID -> %w", err)
	}

	if brand.OwnerID == user.ID && user.Role == domain.RoleOwner {
		return brand, nil
	}
	if allowStaff && user.IsStaffOf(brand.ID) {
		return brand, nil
	}

	return domain.Brand{}, ErrPermissionDenied
}
