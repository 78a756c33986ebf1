package quoterequests

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists quote requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.QuoteRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
	CloseIfOpen(ctx context.Context, id uuid.UUID, reason enums.CloseReason, now time.Time) (bool, error)
	ListOpenForProvider(ctx context.Context, providerID uuid.UUID, now time.Time, params listParams) ([]models.QuoteRequest, *pagination.Cursor, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params listParams) ([]models.QuoteRequest, *pagination.Cursor, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.QuoteRequest, error)
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
	State  *enums.QuoteRequestState
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.QuoteRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(request).Error
}

// FindByID returns gorm.ErrRecordNotFound when no row matches.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	var request models.QuoteRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByIDForUpdate row-locks the request for the rest of the transaction so
// writers that depend on it being OPEN serialize with CloseIfOpen.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	var request models.QuoteRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// CloseIfOpen moves an OPEN request to the terminal state for reason. Only
// one caller can ever observe true for a given request.
func (r *repository) CloseIfOpen(ctx context.Context, id uuid.UUID, reason enums.CloseReason, now time.Time) (bool, error) {
	state, err := reason.TerminalState()
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).
		Model(&models.QuoteRequest{}).
		Where("id = ? AND state = ?", id, enums.QuoteRequestStateOpen).
		Updates(map[string]any{
			"state":        state,
			"close_reason": reason,
			"closed_at":    now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListOpenForProvider(ctx context.Context, providerID uuid.UUID, now time.Time, params listParams) ([]models.QuoteRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.QuoteRequest{}).
		Where("state = ? AND expires_at > ? AND seller_id <> ? AND buyer_id <> ?", enums.QuoteRequestStateOpen, now, providerID, providerID)
	return r.page(query, params)
}

func (r *repository) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params listParams) ([]models.QuoteRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.QuoteRequest{}).
		Where("buyer_id = ?", buyerID)
	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}
	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params listParams) ([]models.QuoteRequest, *pagination.Cursor, error) {
	var rows []models.QuoteRequest
	if err := pagination.Newest(query, params.Cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(req models.QuoteRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: req.CreatedAt, ID: req.ID}
	})
	return page, next, nil
}

// FindDue returns OPEN requests whose window has elapsed, oldest first.
func (r *repository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.QuoteRequest, error) {
	var rows []models.QuoteRequest
	err := r.db.WithContext(ctx).
		Where("state = ? AND expires_at <= ?", enums.QuoteRequestStateOpen, now).
		Order("expires_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// IsNotFound reports whether err is a missing-row error from this repository.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
