package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists cart lines keyed by (buyer, product).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	Delete(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	// DeleteBySeller empties one seller group once its order is placed.
	DeleteBySeller(ctx context.Context, buyerID, sellerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the cart repository to the provided DB handle.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &repository{db: db}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert inserts the line or refreshes quantity and catalog fields for an
// existing (buyer, product) pair.
func (r *repository) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "buyer_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"seller_id", "product_kind", "title", "unit_price_cents", "quantity", "updated_at",
			}),
		}).
		Create(item).Error
	if err != nil {
		return nil, err
	}

	var stored models.CartItem
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", item.BuyerID, item.ProductID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repository) Delete(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Delete(&models.CartItem{})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) DeleteBySeller(ctx context.Context, buyerID, sellerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("buyer_id = ? AND seller_id = ?", buyerID, sellerID).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}
