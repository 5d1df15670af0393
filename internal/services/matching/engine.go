package matching

import (
	"context"
	"sort"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultMatchThreshold is the minimum score a candidate needs to be
	// proposed, on a 0-1 scale.
	DefaultMatchThreshold = 0.7
	DefaultDateWindowDays = 90
	DefaultMaxCandidates  = 100

	scoreExact   = 0.9
	scoreSimilar = 0.7

	ReasonExactAmount   = "Exact amount match"
	ReasonSimilarAmount = "Similar amount match"
	ReasonNoMatch       = "No match"
)

// amountTolerance is the relative window for a "similar" amount match.
var amountTolerance = decimal.NewFromFloat(0.10)

type Config struct {
	MatchThreshold float64
	DateWindowDays int
	MaxCandidates  int
}

func DefaultConfig() Config {
	return Config{
		MatchThreshold: DefaultMatchThreshold,
		DateWindowDays: DefaultDateWindowDays,
		MaxCandidates:  DefaultMaxCandidates,
	}
}

// Engine proposes claim candidates for a payment. It never mutates state.
type Engine struct {
	repos  *repository.Repos
	cfg    Config
	logger *zap.Logger
}

func NewEngine(repos *repository.Repos, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = DefaultMatchThreshold
	}
	if cfg.DateWindowDays <= 0 {
		cfg.DateWindowDays = DefaultDateWindowDays
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	return &Engine{repos: repos, cfg: cfg, logger: logger}
}

// Match is one scored claim candidate for a payment.
type Match struct {
	ClaimID        uuid.UUID       `json:"claim_id"`
	ClaimNumber    string          `json:"claim_number"`
	Score          float64         `json:"score"`
	Reason         string          `json:"reason"`
	ProposedAmount decimal.Decimal `json:"proposed_amount"`
}

type MatchResult struct {
	PaymentID       uuid.UUID       `json:"payment_id"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	Matches         []Match         `json:"matches"`
	UnmatchedAmount decimal.Decimal `json:"unmatched_amount"`
}

// FindPotentialMatches queries claims for the payment's payer in matchable
// states with a service date inside the configured window. The candidate set
// is capped to guard against unbounded scans.
func (e *Engine) FindPotentialMatches(ctx context.Context, payment *models.Payment) ([]models.Claim, error) {
	window := time.Duration(e.cfg.DateWindowDays) * 24 * time.Hour
	from := payment.PaymentDate.Add(-window)
	to := payment.PaymentDate.Add(window)

	return e.repos.Claims.FindWithAdvancedQuery(ctx, repository.ClaimQuery{
		PayerID:     &payment.PayerID,
		Statuses:    []models.ClaimStatus{models.ClaimSubmitted, models.ClaimPending},
		ServiceFrom: &from,
		ServiceTo:   &to,
		Limit:       e.cfg.MaxCandidates,
	})
}

// ScoreClaim is the deterministic scoring rule set, highest first:
// exact amount, then amount within 10 percent, then no match.
func (e *Engine) ScoreClaim(payment *models.Payment, claim *models.Claim) Match {
	m := Match{ClaimID: claim.ID, ClaimNumber: claim.ClaimNumber}

	switch {
	case payment.PaymentAmount.Equal(claim.TotalAmount):
		m.Score = scoreExact
		m.Reason = ReasonExactAmount
		m.ProposedAmount = claim.TotalAmount
	case withinTolerance(payment.PaymentAmount, claim.TotalAmount):
		m.Score = scoreSimilar
		m.Reason = ReasonSimilarAmount
		m.ProposedAmount = claim.TotalAmount
	default:
		m.Reason = ReasonNoMatch
		m.ProposedAmount = decimal.Zero
	}
	return m
}

func withinTolerance(paymentAmount, claimTotal decimal.Decimal) bool {
	if !claimTotal.IsPositive() {
		return false
	}
	diff := paymentAmount.Sub(claimTotal).Abs()
	return diff.LessThanOrEqual(claimTotal.Mul(amountTolerance))
}

// MatchPaymentToClaims loads the payment, scores every candidate, keeps those
// at or above the threshold and returns them ranked.
func (e *Engine) MatchPaymentToClaims(ctx context.Context, paymentID uuid.UUID) (*MatchResult, error) {
	payment, err := e.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	candidates, err := e.FindPotentialMatches(ctx, payment)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for i := range candidates {
		m := e.ScoreClaim(payment, &candidates[i])
		if m.Score >= e.cfg.MatchThreshold {
			matches = append(matches, m)
		}
	}
	sortMatches(matches)

	matched := decimal.Zero
	for _, m := range matches {
		matched = matched.Add(m.ProposedAmount)
	}

	e.logger.Debug("matched payment to claims",
		zap.String("payment_id", paymentID.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)))

	return &MatchResult{
		PaymentID:       payment.ID,
		PaymentAmount:   payment.PaymentAmount,
		Matches:         matches,
		UnmatchedAmount: payment.PaymentAmount.Sub(matched),
	}, nil
}

// sortMatches orders by score, then proposed amount, then claim id so equal
// inputs always rank the same way.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].ProposedAmount.Equal(matches[j].ProposedAmount) {
			return matches[i].ProposedAmount.GreaterThan(matches[j].ProposedAmount)
		}
		return matches[i].ClaimID.String() < matches[j].ClaimID.String()
	})
}

// ValidateMatchAmount enforces that proposed allocations never exceed the
// payment amount. A violation is a business-rule failure, not a clamp.
func ValidateMatchAmount(paymentAmount decimal.Decimal, amounts []decimal.Decimal) error {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	if total.GreaterThan(paymentAmount) {
		return errs.Business("payment.reconcile.amountExceedsPayment",
			"allocated %s exceeds payment amount %s", total, paymentAmount)
	}
	return nil
}
