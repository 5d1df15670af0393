package adjustments

import (
	"context"
	"sort"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger records payment adjustments and aggregates them into trend, impact
// and denial reports.
type Ledger struct {
	repos    *repository.Repos
	tx       repository.TxManager
	validate *validator.Validate
	logger   *zap.Logger
}

func NewLedger(repos *repository.Repos, tx repository.TxManager, logger *zap.Logger) *Ledger {
	return &Ledger{
		repos:    repos,
		tx:       tx,
		validate: validator.New(),
		logger:   logger,
	}
}

type AddAdjustmentRequest struct {
	ClaimPaymentID   *uuid.UUID      `json:"claim_payment_id"`
	ClaimID          *uuid.UUID      `json:"claim_id"`
	AdjustmentType   string          `json:"adjustment_type" validate:"required,oneof=CONTRACTUAL DEDUCTIBLE COINSURANCE COPAY NONCOVERED TRANSFER OTHER"`
	AdjustmentCode   string          `json:"adjustment_code" validate:"required"`
	AdjustmentAmount decimal.Decimal `json:"adjustment_amount"`
	Description      string          `json:"description"`
}

// AddAdjustment validates and persists one adjustment line. Every violation
// found is collected into a single validation error, not just the first.
// Pure denials carry a ClaimID and no ClaimPaymentID.
func (l *Ledger) AddAdjustment(ctx context.Context, req AddAdjustmentRequest, userID string) (*models.PaymentAdjustment, error) {
	var violations []errs.FieldViolation

	if err := l.validate.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				violations = append(violations, errs.FieldViolation{
					Field:   fe.Field(),
					Message: "failed on rule " + fe.Tag(),
				})
			}
		} else {
			return nil, err
		}
	}
	if !req.AdjustmentAmount.IsPositive() {
		violations = append(violations, errs.FieldViolation{
			Field:   "AdjustmentAmount",
			Message: "must be a positive amount",
		})
	}
	if req.ClaimPaymentID == nil && req.ClaimID == nil {
		violations = append(violations, errs.FieldViolation{
			Field:   "ClaimPaymentID",
			Message: "either claim_payment_id or claim_id is required",
		})
	}
	if len(violations) > 0 {
		return nil, errs.Validation(violations...)
	}

	var adj *models.PaymentAdjustment
	err := l.tx.WithinTx(ctx, func(r *repository.Repos) error {
		if req.ClaimPaymentID != nil {
			if _, err := r.Payments.GetClaimPaymentByID(ctx, *req.ClaimPaymentID); err != nil {
				return err
			}
		}
		if req.ClaimID != nil {
			if _, err := r.Claims.FindByID(ctx, *req.ClaimID); err != nil {
				return err
			}
		}

		adj = &models.PaymentAdjustment{
			ID:               uuid.New(),
			ClaimPaymentID:   req.ClaimPaymentID,
			ClaimID:          req.ClaimID,
			AdjustmentType:   models.AdjustmentType(req.AdjustmentType),
			AdjustmentCode:   req.AdjustmentCode,
			AdjustmentAmount: req.AdjustmentAmount,
			Description:      req.Description,
			Status:           "active",
			CreatedAt:        time.Now(),
			CreatedBy:        userID,
		}
		return r.Payments.AddPaymentAdjustment(ctx, adj)
	})
	if err != nil {
		l.logger.Error("add adjustment failed",
			zap.String("operation", "addAdjustment"),
			zap.Error(err))
		return nil, err
	}
	return adj, nil
}

func (l *Ledger) GetAdjustmentsForPayment(ctx context.Context, paymentID uuid.UUID) ([]repository.AdjustmentRecord, error) {
	return l.repos.Adjustments.FindForPayment(ctx, paymentID)
}

func (l *Ledger) GetAdjustmentsForClaim(ctx context.Context, claimID uuid.UUID) ([]repository.AdjustmentRecord, error) {
	return l.repos.Adjustments.FindForClaim(ctx, claimID)
}

type TrendRow struct {
	Period string                `json:"period"`
	Type   models.AdjustmentType `json:"type"`
	Count  int                   `json:"count"`
	Amount decimal.Decimal       `json:"amount"`
}

type PayerTrendRow struct {
	PayerID uuid.UUID             `json:"payer_id"`
	Type    models.AdjustmentType `json:"type"`
	Count   int                   `json:"count"`
	Amount  decimal.Decimal       `json:"amount"`
}

type Trends struct {
	ByPeriod []TrendRow      `json:"by_period"`
	ByPayer  []PayerTrendRow `json:"by_payer"`
}

// GetAdjustmentTrends sums count and amount per (calendar month, type) and
// per (payer, type), sorted by period or payer then descending amount.
func (l *Ledger) GetAdjustmentTrends(ctx context.Context, filter repository.AdjustmentFilter) (*Trends, error) {
	records, err := l.repos.Adjustments.FindRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	type periodKey struct {
		period string
		typ    models.AdjustmentType
	}
	type payerKey struct {
		payer uuid.UUID
		typ   models.AdjustmentType
	}
	byPeriod := make(map[periodKey]*TrendRow)
	byPayer := make(map[payerKey]*PayerTrendRow)

	for _, rec := range records {
		pk := periodKey{period: rec.CreatedAt.Format("2006-01"), typ: rec.AdjustmentType}
		row, ok := byPeriod[pk]
		if !ok {
			row = &TrendRow{Period: pk.period, Type: pk.typ, Amount: decimal.Zero}
			byPeriod[pk] = row
		}
		row.Count++
		row.Amount = row.Amount.Add(rec.AdjustmentAmount)

		yk := payerKey{payer: rec.PayerID, typ: rec.AdjustmentType}
		prow, ok := byPayer[yk]
		if !ok {
			prow = &PayerTrendRow{PayerID: yk.payer, Type: yk.typ, Amount: decimal.Zero}
			byPayer[yk] = prow
		}
		prow.Count++
		prow.Amount = prow.Amount.Add(rec.AdjustmentAmount)
	}

	trends := &Trends{}
	for _, row := range byPeriod {
		trends.ByPeriod = append(trends.ByPeriod, *row)
	}
	sort.Slice(trends.ByPeriod, func(i, j int) bool {
		if trends.ByPeriod[i].Period != trends.ByPeriod[j].Period {
			return trends.ByPeriod[i].Period < trends.ByPeriod[j].Period
		}
		return trends.ByPeriod[i].Amount.GreaterThan(trends.ByPeriod[j].Amount)
	})
	for _, row := range byPayer {
		trends.ByPayer = append(trends.ByPayer, *row)
	}
	sort.Slice(trends.ByPayer, func(i, j int) bool {
		if trends.ByPayer[i].PayerID != trends.ByPayer[j].PayerID {
			return trends.ByPayer[i].PayerID.String() < trends.ByPayer[j].PayerID.String()
		}
		return trends.ByPayer[i].Amount.GreaterThan(trends.ByPayer[j].Amount)
	})
	return trends, nil
}

type ReasonRow struct {
	Code   string                `json:"code"`
	Type   models.AdjustmentType `json:"type"`
	Count  int                   `json:"count"`
	Amount decimal.Decimal       `json:"amount"`
}

// GetTopAdjustmentReasons groups by (code, type) and returns the most
// frequent reasons first, truncated to limit.
func (l *Ledger) GetTopAdjustmentReasons(ctx context.Context, filter repository.AdjustmentFilter, limit int) ([]ReasonRow, error) {
	records, err := l.repos.Adjustments.FindRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	type key struct {
		code string
		typ  models.AdjustmentType
	}
	grouped := make(map[key]*ReasonRow)
	for _, rec := range records {
		k := key{code: rec.AdjustmentCode, typ: rec.AdjustmentType}
		row, ok := grouped[k]
		if !ok {
			row = &ReasonRow{Code: k.code, Type: k.typ, Amount: decimal.Zero}
			grouped[k] = row
		}
		row.Count++
		row.Amount = row.Amount.Add(rec.AdjustmentAmount)
	}

	var rows []ReasonRow
	for _, row := range grouped {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Code < rows[j].Code
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type Impact struct {
	TotalBilled    decimal.Decimal                        `json:"total_billed"`
	TotalPaid      decimal.Decimal                        `json:"total_paid"`
	TotalAdjusted  decimal.Decimal                        `json:"total_adjusted"`
	ByType         map[models.AdjustmentType]CategoryStat `json:"by_type"`
	AdjustmentRate decimal.Decimal                        `json:"adjustment_rate"`
}

// GetAdjustmentImpact relates adjusted dollars to billed and paid dollars
// over a date range.
func (l *Ledger) GetAdjustmentImpact(ctx context.Context, from, to time.Time) (*Impact, error) {
	if from.After(to) {
		return nil, errs.Business("adjustment.report.invalidDateRange",
			"date range start %s is after end %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	claims, err := l.repos.Claims.FindWithAdvancedQuery(ctx, repository.ClaimQuery{
		ServiceFrom: &from,
		ServiceTo:   &to,
	})
	if err != nil {
		return nil, err
	}
	payments, err := l.repos.Payments.FindByFilter(ctx, repository.PaymentQuery{
		DateFrom: &from,
		DateTo:   &to,
	})
	if err != nil {
		return nil, err
	}
	records, err := l.repos.Adjustments.FindRecords(ctx, repository.AdjustmentFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}

	impact := &Impact{
		TotalBilled:    decimal.Zero,
		TotalPaid:      decimal.Zero,
		AdjustmentRate: decimal.Zero,
	}
	for _, c := range claims {
		impact.TotalBilled = impact.TotalBilled.Add(c.TotalAmount)
	}
	for _, p := range payments {
		impact.TotalPaid = impact.TotalPaid.Add(p.PaymentAmount)
	}

	cat := CategorizeAdjustments(toAdjustments(records))
	impact.TotalAdjusted = cat.TotalAmount
	impact.ByType = cat.ByType
	if impact.TotalBilled.IsPositive() {
		impact.AdjustmentRate = impact.TotalAdjusted.Div(impact.TotalBilled).Round(4)
	}
	return impact, nil
}

type DenialAnalysis struct {
	TotalClaims  int               `json:"total_claims"`
	DeniedClaims int               `json:"denied_claims"`
	DenialRate   decimal.Decimal   `json:"denial_rate"`
	ByCode       map[string]int    `json:"by_code"`
	ByPayer      map[uuid.UUID]int `json:"by_payer"`
}

// GetDenialAnalysis treats NONCOVERED adjustments as denials. The rate is
// distinct denied claims over claims in scope.
func (l *Ledger) GetDenialAnalysis(ctx context.Context, filter repository.AdjustmentFilter) (*DenialAnalysis, error) {
	filter.Types = []models.AdjustmentType{models.AdjustmentNoncovered}
	records, err := l.repos.Adjustments.FindRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	claims, err := l.repos.Claims.FindWithAdvancedQuery(ctx, repository.ClaimQuery{
		PayerID:     filter.PayerID,
		ServiceFrom: filter.From,
		ServiceTo:   filter.To,
	})
	if err != nil {
		return nil, err
	}

	analysis := &DenialAnalysis{
		TotalClaims: len(claims),
		DenialRate:  decimal.Zero,
		ByCode:      make(map[string]int),
		ByPayer:     make(map[uuid.UUID]int),
	}
	denied := make(map[uuid.UUID]bool)
	for _, rec := range records {
		denied[rec.ClaimID] = true
		analysis.ByCode[rec.AdjustmentCode]++
		analysis.ByPayer[rec.PayerID]++
	}
	analysis.DeniedClaims = len(denied)
	if analysis.TotalClaims > 0 {
		analysis.DenialRate = decimal.NewFromInt(int64(analysis.DeniedClaims)).
			Div(decimal.NewFromInt(int64(analysis.TotalClaims))).Round(4)
	}
	return analysis, nil
}

type CategoryStat struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Categorized struct {
	ByType      map[models.AdjustmentType]CategoryStat `json:"by_type"`
	TotalCount  int                                    `json:"total_count"`
	TotalAmount decimal.Decimal                        `json:"total_amount"`
}

// CategorizeAdjustments folds a list into per-type counts and amounts. Every
// adjustment type appears in the output, zero-valued when absent.
func CategorizeAdjustments(list []models.PaymentAdjustment) Categorized {
	out := Categorized{
		ByType:      make(map[models.AdjustmentType]CategoryStat),
		TotalAmount: decimal.Zero,
	}
	for _, t := range models.AdjustmentTypes() {
		out.ByType[t] = CategoryStat{Amount: decimal.Zero}
	}
	for _, adj := range list {
		stat := out.ByType[adj.AdjustmentType]
		stat.Count++
		stat.Amount = stat.Amount.Add(adj.AdjustmentAmount)
		out.ByType[adj.AdjustmentType] = stat

		out.TotalCount++
		out.TotalAmount = out.TotalAmount.Add(adj.AdjustmentAmount)
	}
	return out
}

func toAdjustments(records []repository.AdjustmentRecord) []models.PaymentAdjustment {
	out := make([]models.PaymentAdjustment, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.PaymentAdjustment)
	}
	return out
}
