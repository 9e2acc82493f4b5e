package dao

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrandDAO(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	d := NewBrandDAO(db)

	brand, err := d.Insert(ctx, Brand{Name: "Taco Bros", OwnerID: 1, City: "Austin", PrimaryColor: "#FF5733"})
	require.NoError(t, err)
	assert.Equal(t, "trial", brand.SubscriptionStatus)

	t.Run("update profile keeps promotion", func(t *testing.T) {
		brand.PromotionTitle = "ignored by profile update"
		brand.Name = "Taco Bros Downtown"

		got, err := d.UpdateProfile(ctx, brand)
		require.NoError(t, err)
		assert.Equal(t, "Taco Bros Downtown", got.Name)
		assert.Empty(t, got.PromotionTitle)
	})

	t.Run("promotion discount round trips as decimal", func(t *testing.T) {
		until := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
		got, err := d.UpdatePromotion(ctx, Brand{
			ID:                  brand.ID,
			PromotionTitle:      "Taco Tuesday",
			PromotionDiscount:   decimal.RequireFromString("12.50"),
			PromotionValidUntil: &until,
		})
		require.NoError(t, err)
		assert.Equal(t, "Taco Tuesday", got.PromotionTitle)
		assert.True(t, decimal.RequireFromString("12.5").Equal(got.PromotionDiscount))
		require.NotNil(t, got.PromotionValidUntil)
	})

	t.Run("billing", func(t *testing.T) {
		require.NoError(t, d.UpdateBilling(ctx, brand.ID, "cus_123", "active"))
		got, err := d.FindByID(ctx, brand.ID)
		require.NoError(t, err)
		assert.Equal(t, "cus_123", got.BillingCustomerID)
		assert.Equal(t, "active", got.SubscriptionStatus)
	})

	t.Run("locations", func(t *testing.T) {
		loc, err := d.InsertLocation(ctx, Location{BrandID: brand.ID, Name: "Downtown", Phone: "555-0100"})
		require.NoError(t, err)

		loc.Name = "Downtown Austin"
		updated, err := d.UpdateLocation(ctx, loc)
		require.NoError(t, err)
		assert.Equal(t, "Downtown Austin", updated.Name)

		assert.ErrorIs(t, d.DeleteLocation(ctx, brand.ID+1, loc.ID), ErrLocationNotFound)
		require.NoError(t, d.DeleteLocation(ctx, brand.ID, loc.ID))

		locs, err := d.FindLocations(ctx, brand.ID)
		require.NoError(t, err)
		assert.Empty(t, locs)
	})

	t.Run("soft delete hides the brand", func(t *testing.T) {
		require.NoError(t, d.Delete(ctx, brand.ID))

		_, err := d.FindByID(ctx, brand.ID)
		assert.ErrorIs(t, err, ErrBrandNotFound)

		var count int64
		require.NoError(t, db.Unscoped().Model(&Brand{}).Where("id = ?", brand.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestUserDAO_DuplicateEmail(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	d := NewUserDAO(db)

	_, err := d.Insert(ctx, User{Email: "owner@tacobros.test", Password: "hash", Role: "owner", Name: "Owner"})
	require.NoError(t, err)

	_, err = d.Insert(ctx, User{Email: "owner@tacobros.test", Password: "hash", Role: "owner", Name: "Other"})
	assert.ErrorIs(t, err, ErrUserEmailExists)

	_, err = d.FindByEmail(ctx, "nobody@tacobros.test")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBrandDAO_FindNearby(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	d := NewBrandDAO(db)

	for _, b := range []Brand{
		{Name: "Pizza Place", OwnerID: 1, Latitude: 30.3000, Longitude: -97.7431},
		{Name: "Burger Barn", OwnerID: 1, Latitude: 30.2699, Longitude: -97.7431},
		{Name: "Taco Bros", OwnerID: 1, Latitude: 30.2672, Longitude: -97.7431},
		{Name: "Food Truck", OwnerID: 1},
	} {
		_, err := d.Insert(ctx, b)
		require.NoError(t, err)
	}

	closed, err := d.Insert(ctx, Brand{Name: "Closed Diner", OwnerID: 1, Latitude: 30.2673, Longitude: -97.7431})
	require.NoError(t, err)
	require.NoError(t, d.Delete(ctx, closed.ID))

	nearby, err := d.FindNearby(ctx, 30.2672, -97.7431, 500, 10)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, "Taco Bros", nearby[0].Name)
	assert.Equal(t, "Burger Barn", nearby[1].Name)

	wide, err := d.FindNearby(ctx, 30.2672, -97.7431, 5000, 10)
	require.NoError(t, err)
	assert.Len(t, wide, 3)

	limited, err := d.FindNearby(ctx, 30.2672, -97.7431, 5000, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Taco Bros", limited[0].Name)
}

func TestDinerDAO_Delete(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	d := NewDinerDAO(db)

	diner, err := d.Insert(ctx, Diner{Name: "Maria Lopez", Phone: "555-0100", BrandID: 1})
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, diner.ID))

	_, err = d.FindByID(ctx, diner.ID)
	assert.ErrorIs(t, err, ErrDinerNotFound)

	assert.ErrorIs(t, d.Delete(ctx, diner.ID), ErrDinerNotFound)
}
