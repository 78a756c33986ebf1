package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 999

type listingLoader interface {
	GetListing(ctx context.Context, productID uuid.UUID) (*models.Listing, error)
}

// Service exposes buyer cart operations.
type Service interface {
	UpsertLine(ctx context.Context, buyerID uuid.UUID, input UpsertLineInput) (*models.CartItem, error)
	RemoveLine(ctx context.Context, buyerID, productID uuid.UUID) error
	List(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	Groups(ctx context.Context, buyerID uuid.UUID) ([]SellerGroup, error)
	Group(ctx context.Context, buyerID, sellerID uuid.UUID) (*SellerGroup, error)
	ClearSeller(ctx context.Context, tx *gorm.DB, buyerID, sellerID uuid.UUID) error
}

// UpsertLineInput is the client-supplied part of a cart line. Seller and price
// always come from the catalog.
type UpsertLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type service struct {
	repo    Repository
	catalog listingLoader
	clock   func() time.Time
}

// NewService builds a cart service backed by the provided repository and catalog.
func NewService(repo Repository, catalog listingLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &service{
		repo:    repo,
		catalog: catalog,
		clock:   time.Now,
	}, nil
}

func (s *service) UpsertLine(ctx context.Context, buyerID uuid.UUID, input UpsertLineInput) (*models.CartItem, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.Quantity <= 0 || input.Quantity > MaxLineQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between 1 and %d", MaxLineQuantity)
	}

	listing, err := s.catalog.GetListing(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	item := &models.CartItem{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		ProductID:      listing.ID,
		SellerID:       listing.SellerID,
		ProductKind:    listing.Kind,
		Title:          listing.Title,
		UnitPriceCents: listing.UnitPriceCents,
		Quantity:       input.Quantity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	stored, err := s.repo.Upsert(ctx, item)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
	}
	return stored, nil
}

func (s *service) RemoveLine(ctx context.Context, buyerID, productID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, buyerID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	items, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}
	return items, nil
}

func (s *service) Groups(ctx context.Context, buyerID uuid.UUID) ([]SellerGroup, error) {
	items, err := s.List(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineFromItem(item))
	}
	return GroupBySeller(buyerID, lines), nil
}

// Group returns the buyer's lines for one seller or NOT_FOUND when the cart
// holds nothing from that seller.
func (s *service) Group(ctx context.Context, buyerID, sellerID uuid.UUID) (*SellerGroup, error) {
	groups, err := s.Groups(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].SellerID == sellerID {
			return &groups[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no cart items for seller")
}

// ClearSeller drops the buyer's lines for a seller once they have been
// snapshotted into a quote request.
func (s *service) ClearSeller(ctx context.Context, tx *gorm.DB, buyerID, sellerID uuid.UUID) error {
	if _, err := s.repo.WithTx(tx).DeleteBySeller(ctx, buyerID, sellerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart lines")
	}
	return nil
}
