package repository

import (
	"context"
	"time"

	"hcbs-billing-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimQuery is the filter for advanced claim lookups.
type ClaimQuery struct {
	PayerID         *uuid.UUID
	Statuses        []models.ClaimStatus
	ServiceFrom     *time.Time
	ServiceTo       *time.Time
	SubmittedBefore *time.Time
	ProgramCode     string
	Limit           int
}

// PaymentQuery is the filter for payment listings.
type PaymentQuery struct {
	PayerID       *uuid.UUID
	Statuses      []models.ReconciliationStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	CreatedBefore *time.Time
}

// AdjustmentFilter scopes adjustment lookups for reporting.
type AdjustmentFilter struct {
	From    *time.Time
	To      *time.Time
	PayerID *uuid.UUID
	Types   []models.AdjustmentType
}

// AdjustmentRecord is an adjustment denormalized with its counterpart IDs,
// resolved through the owning ClaimPayment.
type AdjustmentRecord struct {
	models.PaymentAdjustment
	PaymentID uuid.UUID
	ClaimID   uuid.UUID
	PayerID   uuid.UUID
}

type ClaimRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	FindByClaimNumber(ctx context.Context, claimNumber string) (*models.Claim, error)
	FindWithAdvancedQuery(ctx context.Context, q ClaimQuery) ([]models.Claim, error)
	UpdateStatus(ctx context.Context, claimID uuid.UUID, newStatus models.ClaimStatus, reason, userID string) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByFilter(ctx context.Context, q PaymentQuery) ([]models.Payment, error)
	// SaveWithVersion persists the payment only if its version column still
	// matches, then increments it. A lost race fails with a business error.
	SaveWithVersion(ctx context.Context, p *models.Payment) error
	UpdateReconciliationStatus(ctx context.Context, paymentID uuid.UUID, status models.ReconciliationStatus) error
	AddClaimPayment(ctx context.Context, cp *models.ClaimPayment) error
	RemoveClaimPayments(ctx context.Context, paymentID uuid.UUID) error
	GetClaimPayments(ctx context.Context, paymentID uuid.UUID) ([]models.ClaimPayment, error)
	GetClaimPaymentByID(ctx context.Context, id uuid.UUID) (*models.ClaimPayment, error)
	GetClaimPaymentTotals(ctx context.Context, claimIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	AddPaymentAdjustment(ctx context.Context, adj *models.PaymentAdjustment) error
	SaveRemittanceInfo(ctx context.Context, info *models.RemittanceInfo) error
}

type AdjustmentRepository interface {
	FindRecords(ctx context.Context, f AdjustmentFilter) ([]AdjustmentRecord, error)
	FindForPayment(ctx context.Context, paymentID uuid.UUID) ([]AdjustmentRecord, error)
	FindForClaim(ctx context.Context, claimID uuid.UUID) ([]AdjustmentRecord, error)
}

// Repos bundles the repositories one logical operation works against. Inside
// WithinTx every repository is bound to the same database transaction.
type Repos struct {
	Payments    PaymentRepository
	Claims      ClaimRepository
	Adjustments AdjustmentRepository
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(r *Repos) error) error
}
