package arreport

import (
	"context"
	"sort"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the read-only accounts-receivable reporting layer. It composes
// persisted claim/payment state and never writes.
type Service struct {
	repos *repository.Repos
}

func NewService(repos *repository.Repos) *Service {
	return &Service{repos: repos}
}

var outstandingStatuses = []models.ClaimStatus{
	models.ClaimSubmitted,
	models.ClaimAcknowledged,
	models.ClaimPending,
}

var priorityHighAmount = decimal.NewFromInt(5000)
var priorityMediumAmount = decimal.NewFromInt(1000)

type AgingFilter struct {
	PayerID     *uuid.UUID
	ProgramCode string
	AsOf        time.Time
}

type AgingBucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type AgingReport struct {
	AsOf    time.Time       `json:"as_of"`
	Buckets []AgingBucket   `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
}

// GetAgingReport groups outstanding claims into the standard aging buckets by
// days since submission.
func (s *Service) GetAgingReport(ctx context.Context, f AgingFilter) (*AgingReport, error) {
	if f.AsOf.IsZero() {
		f.AsOf = time.Now()
	}

	claims, err := s.repos.Claims.FindWithAdvancedQuery(ctx, repository.ClaimQuery{
		PayerID:     f.PayerID,
		ProgramCode: f.ProgramCode,
		Statuses:    outstandingStatuses,
	})
	if err != nil {
		return nil, err
	}

	buckets := []AgingBucket{
		{Label: "current", Amount: decimal.Zero},
		{Label: "1-30", Amount: decimal.Zero},
		{Label: "31-60", Amount: decimal.Zero},
		{Label: "61-90", Amount: decimal.Zero},
		{Label: "91+", Amount: decimal.Zero},
	}
	total := decimal.Zero
	for _, c := range claims {
		idx := bucketIndex(ageInDays(c.SubmittedAt, f.AsOf))
		buckets[idx].Count++
		buckets[idx].Amount = buckets[idx].Amount.Add(c.TotalAmount)
		total = total.Add(c.TotalAmount)
	}

	return &AgingReport{AsOf: f.AsOf, Buckets: buckets, Total: total}, nil
}

func bucketIndex(age int) int {
	switch {
	case age <= 0:
		return 0
	case age <= 30:
		return 1
	case age <= 60:
		return 2
	case age <= 90:
		return 3
	default:
		return 4
	}
}

func ageInDays(since, asOf time.Time) int {
	return int(asOf.Sub(since).Hours() / 24)
}

type OutstandingClaim struct {
	Claim   models.Claim `json:"claim"`
	AgeDays int          `json:"age_days"`
}

// GetOutstandingClaims lists claims still awaiting payment that are older
// than the threshold, oldest first.
func (s *Service) GetOutstandingClaims(ctx context.Context, olderThanDays int, payerID *uuid.UUID) ([]OutstandingClaim, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	claims, err := s.repos.Claims.FindWithAdvancedQuery(ctx, repository.ClaimQuery{
		PayerID:         payerID,
		Statuses:        outstandingStatuses,
		SubmittedBefore: &cutoff,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]OutstandingClaim, 0, len(claims))
	for _, c := range claims {
		out = append(out, OutstandingClaim{Claim: c, AgeDays: ageInDays(c.SubmittedAt, now)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Claim.SubmittedAt.Before(out[j].Claim.SubmittedAt)
	})
	return out, nil
}

// GetUnreconciledPayments lists payments still carrying unallocated dollars
// older than the threshold.
func (s *Service) GetUnreconciledPayments(ctx context.Context, olderThanDays int) ([]models.Payment, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	return s.repos.Payments.FindByFilter(ctx, repository.PaymentQuery{
		Statuses: []models.ReconciliationStatus{
			models.ReconciliationUnreconciled,
			models.ReconciliationPartial,
		},
		CreatedBefore: &cutoff,
	})
}

type WorkItem struct {
	Claim    models.Claim `json:"claim"`
	AgeDays  int          `json:"age_days"`
	Priority string       `json:"priority"`
}

// GetCollectionsWorkList prioritizes outstanding claims for follow-up:
// over 90 days or over $5000 is high, over 60 days or over $1000 is medium.
func (s *Service) GetCollectionsWorkList(ctx context.Context, payerID *uuid.UUID) ([]WorkItem, error) {
	claims, err := s.repos.Claims.FindWithAdvancedQuery(ctx, repository.ClaimQuery{
		PayerID:  payerID,
		Statuses: outstandingStatuses,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]WorkItem, 0, len(claims))
	for _, c := range claims {
		age := ageInDays(c.SubmittedAt, now)
		items = append(items, WorkItem{
			Claim:    c,
			AgeDays:  age,
			Priority: collectionPriority(age, c.TotalAmount),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return priorityRank(items[i].Priority) < priorityRank(items[j].Priority)
		}
		return items[i].AgeDays > items[j].AgeDays
	})
	return items, nil
}

func collectionPriority(ageDays int, amount decimal.Decimal) string {
	switch {
	case ageDays > 90 || amount.GreaterThan(priorityHighAmount):
		return "high"
	case ageDays > 60 || amount.GreaterThan(priorityMediumAmount):
		return "medium"
	default:
		return "low"
	}
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}

type Metrics struct {
	TotalBilled    decimal.Decimal `json:"total_billed"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	OutstandingAR  decimal.Decimal `json:"outstanding_ar"`
	CollectionRate decimal.Decimal `json:"collection_rate"`
	DSO            decimal.Decimal `json:"dso"`
}

// GetMetrics computes collection rate and days-sales-outstanding over a date
// range: DSO = outstanding AR / (billed per day).
func (s *Service) GetMetrics(ctx context.Context, from, to time.Time) (*Metrics, error) {
	if from.After(to) {
		return nil, errs.Business("ar.report.invalidDateRange",
			"date range start %s is after end %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	claims, err := s.repos.Claims.FindWithAdvancedQuery(ctx, repository.ClaimQuery{
		ServiceFrom: &from,
		ServiceTo:   &to,
	})
	if err != nil {
		return nil, err
	}
	payments, err := s.repos.Payments.FindByFilter(ctx, repository.PaymentQuery{
		DateFrom: &from,
		DateTo:   &to,
	})
	if err != nil {
		return nil, err
	}

	claimIDs := make([]uuid.UUID, 0, len(claims))
	for _, c := range claims {
		claimIDs = append(claimIDs, c.ID)
	}
	paidTotals, err := s.repos.Payments.GetClaimPaymentTotals(ctx, claimIDs)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		TotalBilled:    decimal.Zero,
		TotalCollected: decimal.Zero,
		OutstandingAR:  decimal.Zero,
		CollectionRate: decimal.Zero,
		DSO:            decimal.Zero,
	}
	for _, c := range claims {
		m.TotalBilled = m.TotalBilled.Add(c.TotalAmount)
		outstanding := c.TotalAmount.Sub(paidTotals[c.ID])
		if outstanding.IsPositive() {
			m.OutstandingAR = m.OutstandingAR.Add(outstanding)
		}
	}
	for _, p := range payments {
		m.TotalCollected = m.TotalCollected.Add(p.PaymentAmount)
	}

	if m.TotalBilled.IsPositive() {
		m.CollectionRate = m.TotalCollected.Div(m.TotalBilled).Round(4)

		days := decimal.NewFromFloat(to.Sub(from).Hours() / 24)
		if days.IsPositive() {
			billedPerDay := m.TotalBilled.Div(days)
			m.DSO = m.OutstandingAR.Div(billedPerDay).Round(1)
		}
	}
	return m, nil
}
