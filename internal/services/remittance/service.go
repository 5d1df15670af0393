package remittance

import (
	"context"
	"encoding/json"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service turns a parsed remittance into a Payment, a RemittanceInfo and its
// detail lines, matching each line to a claim where possible. The whole
// import commits or rolls back as one unit.
type Service struct {
	repos  *repository.Repos
	tx     repository.TxManager
	parser Parser
	logger *zap.Logger
}

func NewService(repos *repository.Repos, tx repository.TxManager, parser Parser, logger *zap.Logger) *Service {
	return &Service{repos: repos, tx: tx, parser: parser, logger: logger}
}

type ImportRequest struct {
	PayerID     uuid.UUID                 `json:"payer_id"`
	FileContent []byte                    `json:"file_content"`
	FileType    models.RemittanceFileType `json:"file_type"`
	FileName    string                    `json:"file_name"`
}

type ImportResult struct {
	Payment          *models.Payment        `json:"payment"`
	RemittanceInfo   *models.RemittanceInfo `json:"remittance_info"`
	DetailsProcessed int                    `json:"details_processed"`
	ClaimsMatched    int                    `json:"claims_matched"`
}

func (s *Service) ProcessRemittanceFile(ctx context.Context, req ImportRequest, userID string) (*ImportResult, error) {
	var violations []errs.FieldViolation
	if req.PayerID == uuid.Nil {
		violations = append(violations, errs.FieldViolation{Field: "PayerID", Message: "is required"})
	}
	if len(req.FileContent) == 0 {
		violations = append(violations, errs.FieldViolation{Field: "FileContent", Message: "is required"})
	}
	if req.FileType == "" {
		violations = append(violations, errs.FieldViolation{Field: "FileType", Message: "is required"})
	}
	if len(violations) > 0 {
		return nil, errs.Validation(violations...)
	}

	parsed, err := s.parser.Parse(req.FileContent, req.FileType)
	if err != nil {
		// Parse failures are not retried automatically.
		return nil, errs.Integration("remittance.parse.failed", false, err)
	}

	var result *ImportResult
	err = s.tx.WithinTx(ctx, func(r *repository.Repos) error {
		now := time.Now()
		infoID := uuid.New()

		payment := &models.Payment{
			ID:                   uuid.New(),
			PayerID:              req.PayerID,
			PaymentDate:          parsed.Header.PaymentDate,
			PaymentAmount:        parsed.Header.PaymentAmount,
			PaymentMethod:        paymentMethodFrom(parsed.Header.PaymentMethod),
			ReferenceNumber:      parsed.Header.ReferenceNumber,
			CheckNumber:          parsed.Header.CheckNumber,
			RemittanceID:         &infoID,
			ReconciliationStatus: models.ReconciliationUnreconciled,
			Status:               "active",
			Version:              1,
			CreatedAt:            now,
			CreatedBy:            userID,
			UpdatedAt:            now,
		}
		if err := r.Payments.Create(ctx, payment); err != nil {
			return err
		}

		info := &models.RemittanceInfo{
			ID:               infoID,
			PaymentID:        payment.ID,
			RemittanceNumber: parsed.Header.RemittanceNumber,
			PayerIdentifier:  parsed.Header.PayerIdentifier,
			FileType:         req.FileType,
			FileName:         req.FileName,
			ReceivedAt:       now,
			DetailCount:      len(parsed.Details),
			CreatedAt:        now,
		}

		matched := 0
		for _, line := range parsed.Details {
			detail := models.RemittanceDetail{
				ID:               uuid.New(),
				RemittanceInfoID: info.ID,
				ClaimNumber:      line.ClaimNumber,
				ServiceDate:      line.ServiceDate,
				BilledAmount:     line.BilledAmount,
				PaidAmount:       line.PaidAmount,
				AdjustmentAmount: line.AdjustmentAmount,
				CreatedAt:        now,
			}
			if codes, err := json.Marshal(line.AdjustmentCodes); err == nil {
				detail.AdjustmentCodes = codes
			}

			// Exact claim-number lookup only. Unmatched lines are kept
			// with a nil claim for manual reconciliation later.
			claimID, err := s.matchRemittanceDetailToClaim(ctx, r, line)
			if err != nil {
				return err
			}
			if claimID != nil {
				detail.ClaimID = claimID
				matched++
			}
			info.Details = append(info.Details, detail)
		}
		info.MatchedCount = matched

		if err := r.Payments.SaveRemittanceInfo(ctx, info); err != nil {
			return err
		}

		status := models.CalculateReconciliationStatus(
			decimal.NewFromInt(int64(len(parsed.Details))),
			decimal.NewFromInt(int64(matched)),
		)
		if err := r.Payments.UpdateReconciliationStatus(ctx, payment.ID, status); err != nil {
			return err
		}
		payment.ReconciliationStatus = status

		result = &ImportResult{
			Payment:          payment,
			RemittanceInfo:   info,
			DetailsProcessed: len(parsed.Details),
			ClaimsMatched:    matched,
		}
		return nil
	})
	if err != nil {
		s.logger.Error("remittance import failed",
			zap.String("operation", "processRemittanceFile"),
			zap.String("file_name", req.FileName),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("remittance imported",
		zap.String("payment_id", result.Payment.ID.String()),
		zap.Int("details", result.DetailsProcessed),
		zap.Int("matched", result.ClaimsMatched))
	return result, nil
}

func (s *Service) matchRemittanceDetailToClaim(ctx context.Context, r *repository.Repos, line ParsedDetail) (*uuid.UUID, error) {
	claim, err := r.Claims.FindByClaimNumber(ctx, line.ClaimNumber)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &claim.ID, nil
}

func paymentMethodFrom(raw string) models.PaymentMethod {
	switch models.PaymentMethod(raw) {
	case models.PaymentMethodEFT, models.PaymentMethodCheck, models.PaymentMethodCreditCard, models.PaymentMethodCash:
		return models.PaymentMethod(raw)
	default:
		return models.PaymentMethodOther
	}
}
