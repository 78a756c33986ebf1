// Package catalog is the read-only view of seller listings used to price cart lines.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Catalog resolves product ids into listings.
type Catalog interface {
	GetListing(ctx context.Context, productID uuid.UUID) (*models.Listing, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a Catalog backed by the listings table.
func NewRepository(db *gorm.DB) (Catalog, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &repository{db: db}, nil
}

// GetListing returns an active listing or a NOT_FOUND error.
func (r *repository) GetListing(ctx context.Context, productID uuid.UUID) (*models.Listing, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", productID, true).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return &listing, nil
}
