package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGetListingReturnsActiveListing(t *testing.T) {
	conn := dbtest.Open(t)
	listing := models.Listing{
		ID:             uuid.New(),
		SellerID:       uuid.New(),
		Title:          "Ceramic vase",
		Kind:           enums.ProductKindFragile,
		UnitPriceCents: 4500,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(&listing).Error)

	cat, err := NewRepository(conn)
	require.NoError(t, err)

	got, err := cat.GetListing(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Equal(t, listing.SellerID, got.SellerID)
	require.EqualValues(t, 4500, got.UnitPriceCents)
}

func TestGetListingHidesInactiveAndMissing(t *testing.T) {
	conn := dbtest.Open(t)
	inactive := models.Listing{
		ID:             uuid.New(),
		SellerID:       uuid.New(),
		Title:          "Retired",
		Kind:           enums.ProductKindStandard,
		UnitPriceCents: 100,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(&inactive).Error)
	require.NoError(t, conn.Model(&models.Listing{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)

	cat, err := NewRepository(conn)
	require.NoError(t, err)

	_, err = cat.GetListing(context.Background(), inactive.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = cat.GetListing(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = cat.GetListing(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
