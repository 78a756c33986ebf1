package quotes

import (
	"context"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists provider quotes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	FindPendingByProvider(ctx context.Context, requestID, providerID uuid.UUID) (*models.Quote, error)
	Create(ctx context.Context, quote *models.Quote) error
	ReplacePending(ctx context.Context, quote *models.Quote) (bool, error)
	ListPending(ctx context.Context, requestID uuid.UUID) ([]models.Quote, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, params listParams) ([]models.Quote, *pagination.Cursor, error)
	AcceptIfPending(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	RejectPendingSiblings(ctx context.Context, requestID, acceptedID uuid.UUID, now time.Time) ([]models.Quote, error)
	ExpirePendingForRequest(ctx context.Context, requestID uuid.UUID, now time.Time) ([]models.Quote, error)
	ExpireElapsedForRequest(ctx context.Context, requestID uuid.UUID, now time.Time) (int64, error)
	ExpireElapsedOnOpenRequests(ctx context.Context, now time.Time, limit int) (int64, error)
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
	State  *enums.QuoteState
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

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindPendingByProvider(ctx context.Context, requestID, providerID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND provider_id = ? AND state = ?", requestID, providerID, enums.QuoteStatePending).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) Create(ctx context.Context, quote *models.Quote) error {
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(quote).Error
}

// ReplacePending overwrites the bid fields of a quote that is still PENDING.
func (r *repository) ReplacePending(ctx context.Context, quote *models.Quote) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND state = ?", quote.ID, enums.QuoteStatePending).
		Updates(map[string]any{
			"delivery_fee_cents":      quote.DeliveryFeeCents,
			"estimated_delivery_date": quote.EstimatedDeliveryDate,
			"notes":                   quote.Notes,
			"valid_until":             quote.ValidUntil,
			"updated_at":              quote.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListPending(ctx context.Context, requestID uuid.UUID) ([]models.Quote, error) {
	var rows []models.Quote
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND state = ?", requestID, enums.QuoteStatePending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByProvider(ctx context.Context, providerID uuid.UUID, params listParams) ([]models.Quote, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Quote{}).Where("provider_id = ?", providerID)
	if params.State != nil {
		query = query.Where("state = ?", *params.State)
	}

	var rows []models.Quote
	if err := pagination.Newest(query, params.Cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(q models.Quote) pagination.Cursor {
		return pagination.Cursor{CreatedAt: q.CreatedAt, ID: q.ID}
	})
	return page, next, nil
}

// AcceptIfPending is the compare-and-swap PENDING -> ACCEPTED.
func (r *repository) AcceptIfPending(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND state = ?", id, enums.QuoteStatePending).
		Updates(map[string]any{
			"state":      enums.QuoteStateAccepted,
			"decided_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RejectPendingSiblings rejects every other PENDING quote on the request and
// returns the rows it changed.
func (r *repository) RejectPendingSiblings(ctx context.Context, requestID, acceptedID uuid.UUID, now time.Time) ([]models.Quote, error) {
	return r.transitionPending(ctx, enums.QuoteStateRejected, now, "request_id = ? AND id <> ?", requestID, acceptedID)
}

func (r *repository) ExpirePendingForRequest(ctx context.Context, requestID uuid.UUID, now time.Time) ([]models.Quote, error) {
	return r.transitionPending(ctx, enums.QuoteStateExpired, now, "request_id = ?", requestID)
}

func (r *repository) transitionPending(ctx context.Context, to enums.QuoteState, now time.Time, scope string, args ...any) ([]models.Quote, error) {
	var rows []models.Quote
	if err := r.db.WithContext(ctx).
		Where(scope, args...).
		Where("state = ?", enums.QuoteStatePending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id IN ? AND state = ?", ids, enums.QuoteStatePending).
		Updates(map[string]any{
			"state":      to,
			"decided_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	for i := range rows {
		rows[i].State = to
		rows[i].DecidedAt = &now
		rows[i].UpdatedAt = now
	}
	return rows, nil
}

// ExpireElapsedForRequest marks PENDING quotes on one request whose
// validUntil has passed.
func (r *repository) ExpireElapsedForRequest(ctx context.Context, requestID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("request_id = ? AND state = ? AND valid_until <= ?", requestID, enums.QuoteStatePending, now).
		Updates(map[string]any{
			"state":      enums.QuoteStateExpired,
			"decided_at": now,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// ExpireElapsedOnOpenRequests expires at most limit PENDING quotes whose
// validUntil passed while their request is still OPEN.
func (r *repository) ExpireElapsedOnOpenRequests(ctx context.Context, now time.Time, limit int) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE quotes SET state = ?, decided_at = ?, updated_at = ?
		WHERE id IN (
			SELECT q.id FROM quotes q
			JOIN quote_requests r ON r.id = q.request_id
			WHERE q.state = ? AND q.valid_until <= ? AND r.state = ?
			ORDER BY q.valid_until ASC
			LIMIT ?
		)`,
		enums.QuoteStateExpired, now, now,
		enums.QuoteStatePending, now, enums.QuoteRequestStateOpen,
		limit,
	)
	return result.RowsAffected, result.Error
}
