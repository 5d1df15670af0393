package repository

import (
	"context"
	"errors"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("payment", id)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindByFilter(ctx context.Context, q PaymentQuery) ([]models.Payment, error) {
	var payments []models.Payment

	dbQuery := r.db.WithContext(ctx).Model(&models.Payment{})
	if q.PayerID != nil {
		dbQuery = dbQuery.Where("payer_id = ?", *q.PayerID)
	}
	if len(q.Statuses) > 0 {
		dbQuery = dbQuery.Where("reconciliation_status IN ?", q.Statuses)
	}
	if q.DateFrom != nil {
		dbQuery = dbQuery.Where("payment_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		dbQuery = dbQuery.Where("payment_date <= ?", *q.DateTo)
	}
	if q.CreatedBefore != nil {
		dbQuery = dbQuery.Where("payment_date < ?", *q.CreatedBefore)
	}

	err := dbQuery.Order("payment_date ASC").Find(&payments).Error
	return payments, err
}

// SaveWithVersion is the optimistic-lock write path: the update only lands if
// the version read earlier is still current.
func (r *GormPaymentRepository) SaveWithVersion(ctx context.Context, p *models.Payment) error {
	current := p.Version
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND version = ?", p.ID, current).
		Updates(map[string]interface{}{
			"reconciliation_status": p.ReconciliationStatus,
			"notes":                 p.Notes,
			"updated_at":            time.Now(),
			"updated_by":            p.UpdatedBy,
			"version":               current + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.Business("payment.reconcile.conflict",
			"payment %s was modified concurrently", p.ID)
	}
	p.Version = current + 1
	return nil
}

func (r *GormPaymentRepository) UpdateReconciliationStatus(ctx context.Context, paymentID uuid.UUID, status models.ReconciliationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"reconciliation_status": status,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("payment", paymentID)
	}
	return nil
}

func (r *GormPaymentRepository) AddClaimPayment(ctx context.Context, cp *models.ClaimPayment) error {
	return r.db.WithContext(ctx).Create(cp).Error
}

func (r *GormPaymentRepository) RemoveClaimPayments(ctx context.Context, paymentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Delete(&models.ClaimPayment{}).Error
}

func (r *GormPaymentRepository) GetClaimPayments(ctx context.Context, paymentID uuid.UUID) ([]models.ClaimPayment, error) {
	var links []models.ClaimPayment
	err := r.db.WithContext(ctx).
		Preload("Adjustments").
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

func (r *GormPaymentRepository) GetClaimPaymentByID(ctx context.Context, id uuid.UUID) (*models.ClaimPayment, error) {
	var link models.ClaimPayment
	err := r.db.WithContext(ctx).First(&link, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("claimPayment", id)
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *GormPaymentRepository) GetClaimPaymentTotals(ctx context.Context, claimIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	type row struct {
		ClaimID uuid.UUID
		Total   decimal.Decimal
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.ClaimPayment{}).
		Select("claim_id, COALESCE(SUM(paid_amount),0) as total").
		Where("claim_id IN ?", claimIDs).
		Group("claim_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[r.ClaimID] = r.Total
	}
	return totals, nil
}

func (r *GormPaymentRepository) AddPaymentAdjustment(ctx context.Context, adj *models.PaymentAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

func (r *GormPaymentRepository) SaveRemittanceInfo(ctx context.Context, info *models.RemittanceInfo) error {
	return r.db.WithContext(ctx).Create(info).Error
}
