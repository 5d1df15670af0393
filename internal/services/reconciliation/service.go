package reconciliation

import (
	"context"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/repository"
	"hcbs-billing-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service atomically commits claim/payment allocations and keeps claim and
// payment state consistent. Every write path runs inside one transaction.
type Service struct {
	repos  *repository.Repos
	tx     repository.TxManager
	engine *matching.Engine
	logger *zap.Logger
}

func NewService(repos *repository.Repos, tx repository.TxManager, engine *matching.Engine, logger *zap.Logger) *Service {
	return &Service{repos: repos, tx: tx, engine: engine, logger: logger}
}

type CreatePaymentRequest struct {
	PayerID         uuid.UUID       `json:"payer_id"`
	PaymentDate     time.Time       `json:"payment_date"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	CheckNumber     string          `json:"check_number"`
	Notes           string          `json:"notes"`
}

// CreatePayment records a manually entered payment in UNRECONCILED state.
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest, userID string) (*models.Payment, error) {
	var violations []errs.FieldViolation
	if req.PayerID == uuid.Nil {
		violations = append(violations, errs.FieldViolation{Field: "PayerID", Message: "is required"})
	}
	if req.PaymentAmount.IsNegative() {
		violations = append(violations, errs.FieldViolation{Field: "PaymentAmount", Message: "must not be negative"})
	}
	method := models.PaymentMethod(req.PaymentMethod)
	switch method {
	case models.PaymentMethodEFT, models.PaymentMethodCheck, models.PaymentMethodCreditCard,
		models.PaymentMethodCash, models.PaymentMethodOther:
	default:
		violations = append(violations, errs.FieldViolation{Field: "PaymentMethod", Message: "unknown payment method"})
	}
	if len(violations) > 0 {
		return nil, errs.Validation(violations...)
	}

	now := time.Now()
	payment := &models.Payment{
		ID:                   uuid.New(),
		PayerID:              req.PayerID,
		PaymentDate:          req.PaymentDate,
		PaymentAmount:        req.PaymentAmount,
		PaymentMethod:        method,
		ReferenceNumber:      req.ReferenceNumber,
		CheckNumber:          req.CheckNumber,
		ReconciliationStatus: models.ReconciliationUnreconciled,
		Notes:                req.Notes,
		Status:               "active",
		Version:              1,
		CreatedAt:            now,
		CreatedBy:            userID,
		UpdatedAt:            now,
	}
	if err := s.repos.Payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) GetPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	return s.repos.Payments.FindByID(ctx, paymentID)
}

type ClaimPaymentRequest struct {
	ClaimID uuid.UUID       `json:"claim_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

type ReconcileRequest struct {
	ClaimPayments []ClaimPaymentRequest `json:"claim_payments" binding:"required"`
	Notes         string                `json:"notes"`
}

// ClaimStatusChange records one claim whose status actually moved.
type ClaimStatusChange struct {
	ClaimID        uuid.UUID          `json:"claim_id"`
	PreviousStatus models.ClaimStatus `json:"previous_status"`
	NewStatus      models.ClaimStatus `json:"new_status"`
}

type ReconcileResult struct {
	Payment       *models.Payment       `json:"payment"`
	ClaimPayments []models.ClaimPayment `json:"claim_payments"`
	StatusChanges []ClaimStatusChange   `json:"status_changes"`
}

// ReconcilePayment replaces the payment's allocations with the requested set.
// Existing ClaimPayment rows are removed first: re-reconciliation replaces,
// never appends.
func (s *Service) ReconcilePayment(ctx context.Context, paymentID uuid.UUID, req ReconcileRequest, userID string) (*ReconcileResult, error) {
	seen := make(map[uuid.UUID]struct{}, len(req.ClaimPayments))
	for _, cp := range req.ClaimPayments {
		if _, dup := seen[cp.ClaimID]; dup {
			return nil, errs.Business("payment.reconcile.duplicateClaim",
				"claim %s appears more than once in the allocation set", cp.ClaimID)
		}
		seen[cp.ClaimID] = struct{}{}
	}

	var result *ReconcileResult

	err := s.tx.WithinTx(ctx, func(r *repository.Repos) error {
		payment, err := r.Payments.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}

		amounts := make([]decimal.Decimal, 0, len(req.ClaimPayments))
		for _, cp := range req.ClaimPayments {
			amounts = append(amounts, cp.Amount)
		}
		if err := matching.ValidateMatchAmount(payment.PaymentAmount, amounts); err != nil {
			return err
		}

		if err := r.Payments.RemoveClaimPayments(ctx, payment.ID); err != nil {
			return err
		}

		now := time.Now()
		matched := decimal.Zero
		created := make([]models.ClaimPayment, 0, len(req.ClaimPayments))
		var changes []ClaimStatusChange

		for _, alloc := range req.ClaimPayments {
			claim, err := r.Claims.FindByID(ctx, alloc.ClaimID)
			if err != nil {
				return err
			}

			link := models.ClaimPayment{
				ID:         uuid.New(),
				PaymentID:  payment.ID,
				ClaimID:    claim.ID,
				PaidAmount: alloc.Amount,
				Status:     "active",
				CreatedAt:  now,
				CreatedBy:  userID,
			}
			if err := r.Payments.AddClaimPayment(ctx, &link); err != nil {
				return err
			}
			created = append(created, link)
			matched = matched.Add(alloc.Amount)

			newStatus := models.CalculateClaimStatus(claim.TotalAmount, alloc.Amount, claim.ClaimStatus)
			if newStatus != claim.ClaimStatus {
				if err := r.Claims.UpdateStatus(ctx, claim.ID, newStatus, "payment reconciliation", userID); err != nil {
					return err
				}
				changes = append(changes, ClaimStatusChange{
					ClaimID:        claim.ID,
					PreviousStatus: claim.ClaimStatus,
					NewStatus:      newStatus,
				})
			}
		}

		payment.ReconciliationStatus = models.CalculateReconciliationStatus(payment.PaymentAmount, matched)
		if req.Notes != "" {
			payment.Notes = req.Notes
		}
		payment.UpdatedBy = userID
		if err := r.Payments.SaveWithVersion(ctx, payment); err != nil {
			return err
		}

		result = &ReconcileResult{Payment: payment, ClaimPayments: created, StatusChanges: changes}
		return nil
	})
	if err != nil {
		s.logger.Error("reconcile failed",
			zap.String("payment_id", paymentID.String()),
			zap.String("operation", "reconcile"),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// UndoReconciliation deletes every ClaimPayment for the payment, reverts the
// affected claims to PENDING and resets the payment to UNRECONCILED.
func (s *Service) UndoReconciliation(ctx context.Context, paymentID uuid.UUID, userID string) (*ReconcileResult, error) {
	var result *ReconcileResult

	err := s.tx.WithinTx(ctx, func(r *repository.Repos) error {
		payment, err := r.Payments.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}

		links, err := r.Payments.GetClaimPayments(ctx, payment.ID)
		if err != nil {
			return err
		}
		if len(links) == 0 {
			return errs.Business("payment.reconcile.nothingToUndo",
				"payment %s has no reconciliation to undo", payment.ID)
		}

		var changes []ClaimStatusChange
		for _, link := range links {
			claim, err := r.Claims.FindByID(ctx, link.ClaimID)
			if err != nil {
				return err
			}
			if claim.ClaimStatus != models.ClaimPending {
				if err := r.Claims.UpdateStatus(ctx, claim.ID, models.ClaimPending, "reconciliation undone", userID); err != nil {
					return err
				}
				changes = append(changes, ClaimStatusChange{
					ClaimID:        claim.ID,
					PreviousStatus: claim.ClaimStatus,
					NewStatus:      models.ClaimPending,
				})
			}
		}

		if err := r.Payments.RemoveClaimPayments(ctx, payment.ID); err != nil {
			return err
		}

		payment.ReconciliationStatus = models.ReconciliationUnreconciled
		payment.UpdatedBy = userID
		if err := r.Payments.SaveWithVersion(ctx, payment); err != nil {
			return err
		}

		result = &ReconcileResult{Payment: payment, StatusChanges: changes}
		return nil
	})
	if err != nil {
		s.logger.Error("undo failed",
			zap.String("payment_id", paymentID.String()),
			zap.String("operation", "undo"),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// AutoReconcilePayment turns the matching engine's suggestions at or above
// matchThreshold into a reconcile request. The threshold is a 0-1 fraction.
func (s *Service) AutoReconcilePayment(ctx context.Context, paymentID uuid.UUID, matchThreshold float64, userID string) (*ReconcileResult, error) {
	if matchThreshold < 0 || matchThreshold > 1 {
		return nil, errs.Business("payment.reconcile.thresholdOutOfRange",
			"match threshold %v must be between 0 and 1", matchThreshold)
	}

	matchResult, err := s.engine.MatchPaymentToClaims(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	req := ReconcileRequest{Notes: "auto-reconciled"}
	for _, m := range matchResult.Matches {
		if m.Score >= matchThreshold {
			req.ClaimPayments = append(req.ClaimPayments, ClaimPaymentRequest{
				ClaimID: m.ClaimID,
				Amount:  m.ProposedAmount,
			})
		}
	}
	if len(req.ClaimPayments) == 0 {
		return nil, errs.Business("payment.reconcile.noMatchesAboveThreshold",
			"no claim matched payment %s at threshold %v", paymentID, matchThreshold)
	}

	return s.ReconcilePayment(ctx, paymentID, req, userID)
}

type BatchItem struct {
	PaymentID uuid.UUID        `json:"payment_id" binding:"required"`
	Request   ReconcileRequest `json:"request"`
}

type BatchFailure struct {
	PaymentID uuid.UUID `json:"payment_id"`
	Error     string    `json:"error"`
}

type BatchResult struct {
	Successful []uuid.UUID        `json:"successful"`
	Failed     []BatchFailure     `json:"failed"`
	Results    []*ReconcileResult `json:"results"`
}

// BatchReconcilePayments applies ReconcilePayment per item, each in its own
// transaction. One failure never rolls back or aborts the rest of the batch.
func (s *Service) BatchReconcilePayments(ctx context.Context, items []BatchItem, userID string) *BatchResult {
	out := &BatchResult{}
	for _, item := range items {
		result, err := s.ReconcilePayment(ctx, item.PaymentID, item.Request, userID)
		if err != nil {
			out.Failed = append(out.Failed, BatchFailure{PaymentID: item.PaymentID, Error: err.Error()})
			continue
		}
		out.Successful = append(out.Successful, item.PaymentID)
		out.Results = append(out.Results, result)
	}
	return out
}

// GetSuggestedMatches is the read-only view over the matching engine.
func (s *Service) GetSuggestedMatches(ctx context.Context, paymentID uuid.UUID) (*matching.MatchResult, error) {
	return s.engine.MatchPaymentToClaims(ctx, paymentID)
}

type ReconciliationDetails struct {
	Payment        *models.Payment       `json:"payment"`
	ClaimPayments  []models.ClaimPayment `json:"claim_payments"`
	AllocatedTotal decimal.Decimal       `json:"allocated_total"`
	Unallocated    decimal.Decimal       `json:"unallocated"`
}

func (s *Service) GetReconciliationDetails(ctx context.Context, paymentID uuid.UUID) (*ReconciliationDetails, error) {
	payment, err := s.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	links, err := s.repos.Payments.GetClaimPayments(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	allocated := decimal.Zero
	for _, link := range links {
		allocated = allocated.Add(link.PaidAmount)
	}

	return &ReconciliationDetails{
		Payment:        payment,
		ClaimPayments:  links,
		AllocatedTotal: allocated,
		Unallocated:    payment.PaymentAmount.Sub(allocated),
	}, nil
}
