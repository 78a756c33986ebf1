package quotes

import (
	"context"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProviderDirectory resolves provider profile data for quote listings.
type ProviderDirectory interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.DeliveryProvider, error)
}

type providerDirectory struct {
	db *gorm.DB
}

// NewProviderDirectory reads the delivery_providers table.
func NewProviderDirectory(db *gorm.DB) ProviderDirectory {
	return &providerDirectory{db: db}
}

func (d *providerDirectory) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.DeliveryProvider, error) {
	out := make(map[uuid.UUID]models.DeliveryProvider, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.DeliveryProvider
	if err := d.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}
