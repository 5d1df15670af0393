package repository

import (
	"context"
	"errors"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormClaimRepository struct {
	db *gorm.DB
}

func NewGormClaimRepository(db *gorm.DB) *GormClaimRepository {
	return &GormClaimRepository{db: db}
}

func (r *GormClaimRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).First(&claim, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("claim", id)
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *GormClaimRepository) FindByClaimNumber(ctx context.Context, claimNumber string) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).First(&claim, "claim_number = ?", claimNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound("claim", claimNumber)
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *GormClaimRepository) FindWithAdvancedQuery(ctx context.Context, q ClaimQuery) ([]models.Claim, error) {
	var claims []models.Claim

	dbQuery := r.db.WithContext(ctx).Model(&models.Claim{})
	if q.PayerID != nil {
		dbQuery = dbQuery.Where("payer_id = ?", *q.PayerID)
	}
	if len(q.Statuses) > 0 {
		dbQuery = dbQuery.Where("claim_status IN ?", q.Statuses)
	}
	if q.ServiceFrom != nil {
		dbQuery = dbQuery.Where("service_date >= ?", *q.ServiceFrom)
	}
	if q.ServiceTo != nil {
		dbQuery = dbQuery.Where("service_date <= ?", *q.ServiceTo)
	}
	if q.SubmittedBefore != nil {
		dbQuery = dbQuery.Where("submitted_at < ?", *q.SubmittedBefore)
	}
	if q.ProgramCode != "" {
		dbQuery = dbQuery.Where("program_code = ?", q.ProgramCode)
	}
	if q.Limit > 0 {
		dbQuery = dbQuery.Limit(q.Limit)
	}

	err := dbQuery.Order("id ASC").Find(&claims).Error
	return claims, err
}

func (r *GormClaimRepository) UpdateStatus(ctx context.Context, claimID uuid.UUID, newStatus models.ClaimStatus, reason, userID string) error {
	result := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ?", claimID).
		Updates(map[string]interface{}{
			"claim_status": newStatus,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("claim", claimID)
	}
	return nil
}
