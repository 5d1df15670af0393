package repository

import (
	"context"

	"hcbs-billing-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormAdjustmentRepository struct {
	db *gorm.DB
}

func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// baseQuery resolves the counterpart IDs for each adjustment. Payer comes
// from the payment for linked adjustments and from the claim for pure
// denials, which have no claim_payment row.
func (r *GormAdjustmentRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.PaymentAdjustment{}).
		Select(`payment_adjustments.*,
			COALESCE(claim_payments.payment_id, '00000000-0000-0000-0000-000000000000') as payment_id,
			COALESCE(claim_payments.claim_id, payment_adjustments.claim_id, '00000000-0000-0000-0000-000000000000') as claim_id,
			COALESCE(payments.payer_id, claims.payer_id, '00000000-0000-0000-0000-000000000000') as payer_id`).
		Joins("LEFT JOIN claim_payments ON claim_payments.id = payment_adjustments.claim_payment_id").
		Joins("LEFT JOIN payments ON payments.id = claim_payments.payment_id").
		Joins("LEFT JOIN claims ON claims.id = COALESCE(claim_payments.claim_id, payment_adjustments.claim_id)")
}

func (r *GormAdjustmentRepository) FindRecords(ctx context.Context, f AdjustmentFilter) ([]AdjustmentRecord, error) {
	var records []AdjustmentRecord

	dbQuery := r.baseQuery(ctx)
	if f.From != nil {
		dbQuery = dbQuery.Where("payment_adjustments.created_at >= ?", *f.From)
	}
	if f.To != nil {
		dbQuery = dbQuery.Where("payment_adjustments.created_at <= ?", *f.To)
	}
	if f.PayerID != nil {
		dbQuery = dbQuery.Where("COALESCE(payments.payer_id, claims.payer_id) = ?", *f.PayerID)
	}
	if len(f.Types) > 0 {
		dbQuery = dbQuery.Where("payment_adjustments.adjustment_type IN ?", f.Types)
	}

	err := dbQuery.Order("payment_adjustments.created_at ASC").Scan(&records).Error
	return records, err
}

func (r *GormAdjustmentRepository) FindForPayment(ctx context.Context, paymentID uuid.UUID) ([]AdjustmentRecord, error) {
	var records []AdjustmentRecord
	err := r.baseQuery(ctx).
		Where("claim_payments.payment_id = ?", paymentID).
		Scan(&records).Error
	return records, err
}

func (r *GormAdjustmentRepository) FindForClaim(ctx context.Context, claimID uuid.UUID) ([]AdjustmentRecord, error) {
	var records []AdjustmentRecord
	err := r.baseQuery(ctx).
		Where("claim_payments.claim_id = ? OR payment_adjustments.claim_id = ?", claimID, claimID).
		Scan(&records).Error
	return records, err
}
