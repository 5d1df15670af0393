package matching

import (
	"context"
	"testing"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func newTestEngine(store *repository.MemoryStore) *Engine {
	return NewEngine(store.Repos(), DefaultConfig(), zap.NewNop())
}

func seedClaim(store *repository.MemoryStore, payerID uuid.UUID, total decimal.Decimal, status models.ClaimStatus) models.Claim {
	claim := models.Claim{
		ID:          uuid.New(),
		ClaimNumber: "CLM-" + uuid.NewString()[:8],
		PayerID:     payerID,
		ServiceDate: time.Now().AddDate(0, 0, -10),
		TotalAmount: total,
		ClaimStatus: status,
		SubmittedAt: time.Now().AddDate(0, 0, -10),
	}
	store.SeedClaim(claim)
	return claim
}

func TestScoreClaim(t *testing.T) {
	store := repository.NewMemoryStore()
	engine := newTestEngine(store)
	payment := &models.Payment{ID: uuid.New(), PaymentAmount: d(1000)}

	t.Run("Exact Amount Match", func(t *testing.T) {
		claim := &models.Claim{ID: uuid.New(), TotalAmount: d(1000)}
		m := engine.ScoreClaim(payment, claim)

		assert.Equal(t, 0.9, m.Score)
		assert.Equal(t, ReasonExactAmount, m.Reason)
		assert.True(t, m.ProposedAmount.Equal(d(1000)))
	})

	t.Run("Similar Amount Match", func(t *testing.T) {
		claim := &models.Claim{ID: uuid.New(), TotalAmount: d(950)}
		m := engine.ScoreClaim(payment, claim)

		assert.Equal(t, 0.7, m.Score)
		assert.Equal(t, ReasonSimilarAmount, m.Reason)
		assert.True(t, m.ProposedAmount.Equal(d(950)))
	})

	t.Run("No Match Outside Tolerance", func(t *testing.T) {
		claim := &models.Claim{ID: uuid.New(), TotalAmount: d(500)}
		m := engine.ScoreClaim(payment, claim)

		assert.Equal(t, 0.0, m.Score)
		assert.Equal(t, ReasonNoMatch, m.Reason)
		assert.True(t, m.ProposedAmount.IsZero())
	})

	t.Run("Deterministic", func(t *testing.T) {
		claim := &models.Claim{ID: uuid.New(), TotalAmount: d(1000)}
		first := engine.ScoreClaim(payment, claim)
		second := engine.ScoreClaim(payment, claim)

		assert.Equal(t, first, second)
	})
}

func TestMatchPaymentToClaims(t *testing.T) {
	t.Run("Ranks Exact Above Similar", func(t *testing.T) {
		store := repository.NewMemoryStore()
		payerID := uuid.New()
		exact := seedClaim(store, payerID, d(1000), models.ClaimSubmitted)
		similar := seedClaim(store, payerID, d(950), models.ClaimPending)
		seedClaim(store, payerID, d(200), models.ClaimSubmitted) // below tolerance

		payment := models.Payment{
			ID:            uuid.New(),
			PayerID:       payerID,
			PaymentDate:   time.Now(),
			PaymentAmount: d(1000),
		}
		store.SeedPayment(payment)

		result, err := newTestEngine(store).MatchPaymentToClaims(context.Background(), payment.ID)
		require.NoError(t, err)
		require.Len(t, result.Matches, 2)

		assert.Equal(t, exact.ID, result.Matches[0].ClaimID)
		assert.Equal(t, 0.9, result.Matches[0].Score)
		assert.Equal(t, similar.ID, result.Matches[1].ClaimID)
		assert.Equal(t, 0.7, result.Matches[1].Score)
	})

	t.Run("Unmatched Amount", func(t *testing.T) {
		store := repository.NewMemoryStore()
		payerID := uuid.New()
		seedClaim(store, payerID, d(400), models.ClaimSubmitted)

		payment := models.Payment{
			ID:            uuid.New(),
			PayerID:       payerID,
			PaymentDate:   time.Now(),
			PaymentAmount: d(400),
		}
		store.SeedPayment(payment)

		result, err := newTestEngine(store).MatchPaymentToClaims(context.Background(), payment.ID)
		require.NoError(t, err)
		require.Len(t, result.Matches, 1)
		assert.True(t, result.UnmatchedAmount.IsZero())
	})

	t.Run("Excludes Paid Claims And Other Payers", func(t *testing.T) {
		store := repository.NewMemoryStore()
		payerID := uuid.New()
		seedClaim(store, payerID, d(1000), models.ClaimPaid)
		seedClaim(store, uuid.New(), d(1000), models.ClaimSubmitted)

		payment := models.Payment{
			ID:            uuid.New(),
			PayerID:       payerID,
			PaymentDate:   time.Now(),
			PaymentAmount: d(1000),
		}
		store.SeedPayment(payment)

		result, err := newTestEngine(store).MatchPaymentToClaims(context.Background(), payment.ID)
		require.NoError(t, err)
		assert.Empty(t, result.Matches)
		assert.True(t, result.UnmatchedAmount.Equal(d(1000)))
	})

	t.Run("Payment Not Found", func(t *testing.T) {
		store := repository.NewMemoryStore()
		_, err := newTestEngine(store).MatchPaymentToClaims(context.Background(), uuid.New())

		assert.True(t, errs.IsNotFound(err))
	})
}

func TestValidateMatchAmount(t *testing.T) {
	t.Run("Within Payment Amount", func(t *testing.T) {
		err := ValidateMatchAmount(d(1000), []decimal.Decimal{d(600), d(400)})
		assert.NoError(t, err)
	})

	t.Run("Exceeds Payment Amount", func(t *testing.T) {
		err := ValidateMatchAmount(d(1000), []decimal.Decimal{d(800), d(400)})
		assert.True(t, errs.IsBusiness(err))
		assert.Equal(t, "payment.reconcile.amountExceedsPayment", errs.CodeOf(err))
	})
}
