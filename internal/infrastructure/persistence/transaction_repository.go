package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds transactions matching the filter, newest date first by default
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter finance.TransactionFilter) ([]finance.Transaction, error) {
	query := applyOrderAndPage(r.applyFilter(r.db.WithContext(ctx).Model(&models.TransactionModel{}), filter),
		filter.Filter, TransactionSortFields, "date")

	var txModels []models.TransactionModel
	if err := query.Find(&txModels).Error; err != nil {
		return nil, err
	}
	out := make([]finance.Transaction, len(txModels))
	for i := range txModels {
		out[i] = *txModels[i].ToDomain()
	}
	return out, nil
}

// Count counts transactions matching the filter
func (r *GormTransactionRepository) Count(ctx context.Context, filter finance.TransactionFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.TransactionModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsForEvent reports whether a transaction was already projected from the event
func (r *GormTransactionRepository) ExistsForEvent(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("source_event_id = ?", eventID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SummaryRows aggregates amounts grouped by type and status
func (r *GormTransactionRepository) SummaryRows(ctx context.Context, filter finance.TransactionFilter) ([]finance.SummaryRow, error) {
	var rows []models.SummaryRowModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.TransactionModel{}), filter).
		Select("type, status, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("type, status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]finance.SummaryRow, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}

// Save creates or updates a transaction. A second projection of the same
// event is rejected by the source_event_id unique index.
func (r *GormTransactionRepository) Save(ctx context.Context, tx *finance.Transaction) error {
	if err := r.db.WithContext(ctx).Save(models.TransactionModelFromDomain(tx)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Transaction already recorded for this event")
		}
		return err
	}
	return nil
}

// DeleteByID deletes a transaction
func (r *GormTransactionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TransactionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter finance.TransactionFilter) *gorm.DB {
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}
	if filter.Search != "" {
		query = query.Where(`LOWER(description) LIKE ? ESCAPE '\'`, likePattern(filter.Search))
	}
	return query
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ finance.TransactionRepository = (*GormTransactionRepository)(nil)
