package reconciliation

import (
	"context"
	"testing"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"
	"hcbs-billing-backend/internal/repository"
	"hcbs-billing-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

type fixture struct {
	store   *repository.MemoryStore
	service *Service
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	engine := matching.NewEngine(store.Repos(), matching.DefaultConfig(), zap.NewNop())
	return &fixture{
		store:   store,
		service: NewService(store.Repos(), store, engine, zap.NewNop()),
	}
}

func (f *fixture) seedClaim(payerID uuid.UUID, total decimal.Decimal) models.Claim {
	claim := models.Claim{
		ID:          uuid.New(),
		ClaimNumber: "CLM-" + uuid.NewString()[:8],
		PayerID:     payerID,
		ServiceDate: time.Now().AddDate(0, 0, -5),
		TotalAmount: total,
		ClaimStatus: models.ClaimPending,
		SubmittedAt: time.Now().AddDate(0, 0, -5),
	}
	f.store.SeedClaim(claim)
	return claim
}

func (f *fixture) seedPayment(payerID uuid.UUID, amount decimal.Decimal) models.Payment {
	payment := models.Payment{
		ID:                   uuid.New(),
		PayerID:              payerID,
		PaymentDate:          time.Now(),
		PaymentAmount:        amount,
		PaymentMethod:        models.PaymentMethodEFT,
		ReconciliationStatus: models.ReconciliationUnreconciled,
		Status:               "active",
		Version:              1,
	}
	f.store.SeedPayment(payment)
	return payment
}

// checkStatusInvariant asserts the cached payment status matches what the
// derivation rule produces from the persisted allocations.
func checkStatusInvariant(t *testing.T, f *fixture, paymentID uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	payment, err := f.store.Repos().Payments.FindByID(ctx, paymentID)
	require.NoError(t, err)
	links, err := f.store.Repos().Payments.GetClaimPayments(ctx, paymentID)
	require.NoError(t, err)

	matched := decimal.Zero
	for _, link := range links {
		matched = matched.Add(link.PaidAmount)
	}
	assert.Equal(t, models.CalculateReconciliationStatus(payment.PaymentAmount, matched),
		payment.ReconciliationStatus)
}

func TestReconcilePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Full Reconciliation", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		claim := f.seedClaim(payerID, d(1000))
		payment := f.seedPayment(payerID, d(1000))

		result, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{{ClaimID: claim.ID, Amount: d(1000)}},
		}, "tester")
		require.NoError(t, err)

		assert.Equal(t, models.ReconciliationReconciled, result.Payment.ReconciliationStatus)
		require.Len(t, result.ClaimPayments, 1)
		require.Len(t, result.StatusChanges, 1)
		assert.Equal(t, models.ClaimPending, result.StatusChanges[0].PreviousStatus)
		assert.Equal(t, models.ClaimPaid, result.StatusChanges[0].NewStatus)
		checkStatusInvariant(t, f, payment.ID)
	})

	t.Run("Partial Reconciliation", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		claim := f.seedClaim(payerID, d(1000))
		payment := f.seedPayment(payerID, d(1000))

		result, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{{ClaimID: claim.ID, Amount: d(400)}},
		}, "tester")
		require.NoError(t, err)

		assert.Equal(t, models.ReconciliationPartial, result.Payment.ReconciliationStatus)
		require.Len(t, result.StatusChanges, 1)
		assert.Equal(t, models.ClaimPartialPaid, result.StatusChanges[0].NewStatus)

		details, err := f.service.GetReconciliationDetails(ctx, payment.ID)
		require.NoError(t, err)
		assert.True(t, details.Unallocated.Equal(d(600)))
		checkStatusInvariant(t, f, payment.ID)
	})

	t.Run("Allocation Exceeds Payment", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		claim := f.seedClaim(payerID, d(1200))
		payment := f.seedPayment(payerID, d(1000))

		_, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{{ClaimID: claim.ID, Amount: d(1200)}},
		}, "tester")
		require.Error(t, err)
		assert.True(t, errs.IsBusiness(err))
		assert.Equal(t, "payment.reconcile.amountExceedsPayment", errs.CodeOf(err))

		// nothing persisted
		links, lerr := f.store.Repos().Payments.GetClaimPayments(ctx, payment.ID)
		require.NoError(t, lerr)
		assert.Empty(t, links)
		checkStatusInvariant(t, f, payment.ID)
	})

	t.Run("Re-Reconciliation Replaces Allocations", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		first := f.seedClaim(payerID, d(600))
		second := f.seedClaim(payerID, d(1000))
		payment := f.seedPayment(payerID, d(1000))

		_, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{{ClaimID: first.ID, Amount: d(600)}},
		}, "tester")
		require.NoError(t, err)

		result, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{{ClaimID: second.ID, Amount: d(1000)}},
		}, "tester")
		require.NoError(t, err)

		links, err := f.store.Repos().Payments.GetClaimPayments(ctx, payment.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, second.ID, links[0].ClaimID)
		assert.Equal(t, models.ReconciliationReconciled, result.Payment.ReconciliationStatus)
		checkStatusInvariant(t, f, payment.ID)
	})

	t.Run("Duplicate Claim In Allocation Set", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		claim := f.seedClaim(payerID, d(1000))
		payment := f.seedPayment(payerID, d(1000))

		_, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{
				{ClaimID: claim.ID, Amount: d(400)},
				{ClaimID: claim.ID, Amount: d(400)},
			},
		}, "tester")
		require.Error(t, err)
		assert.True(t, errs.IsBusiness(err))
		assert.Equal(t, "payment.reconcile.duplicateClaim", errs.CodeOf(err))

		// no rows persisted for either occurrence
		links, lerr := f.store.Repos().Payments.GetClaimPayments(ctx, payment.ID)
		require.NoError(t, lerr)
		assert.Empty(t, links)
		checkStatusInvariant(t, f, payment.ID)
	})

	t.Run("Missing Payment", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.ReconcilePayment(ctx, uuid.New(), ReconcileRequest{}, "tester")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("Missing Claim Rolls Back", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		claim := f.seedClaim(payerID, d(500))
		payment := f.seedPayment(payerID, d(1000))

		_, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{
				{ClaimID: claim.ID, Amount: d(500)},
				{ClaimID: uuid.New(), Amount: d(100)},
			},
		}, "tester")
		require.Error(t, err)
		assert.True(t, errs.IsNotFound(err))

		links, lerr := f.store.Repos().Payments.GetClaimPayments(ctx, payment.ID)
		require.NoError(t, lerr)
		assert.Empty(t, links)
	})
}

func TestConcurrentReconcileConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	payerID := uuid.New()
	claim := f.seedClaim(payerID, d(1000))
	payment := f.seedPayment(payerID, d(1000))

	// Two writers read the same version; whoever saves second must lose.
	stale, err := f.store.Repos().Payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)

	_, err = f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
		ClaimPayments: []ClaimPaymentRequest{{ClaimID: claim.ID, Amount: d(1000)}},
	}, "tester")
	require.NoError(t, err)

	err = f.store.Repos().Payments.SaveWithVersion(ctx, stale)
	require.Error(t, err)
	assert.True(t, errs.IsBusiness(err))
	assert.Equal(t, "payment.reconcile.conflict", errs.CodeOf(err))

	// the committed reconciliation is untouched
	current, err := f.store.Repos().Payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationReconciled, current.ReconciliationStatus)
	checkStatusInvariant(t, f, payment.ID)
}

func TestUndoReconciliation(t *testing.T) {
	ctx := context.Background()

	t.Run("Reverts Claims And Payment", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		claim := f.seedClaim(payerID, d(1000))
		payment := f.seedPayment(payerID, d(1000))

		_, err := f.service.ReconcilePayment(ctx, payment.ID, ReconcileRequest{
			ClaimPayments: []ClaimPaymentRequest{{ClaimID: claim.ID, Amount: d(1000)}},
		}, "tester")
		require.NoError(t, err)

		result, err := f.service.UndoReconciliation(ctx, payment.ID, "tester")
		require.NoError(t, err)

		assert.Equal(t, models.ReconciliationUnreconciled, result.Payment.ReconciliationStatus)
		require.Len(t, result.StatusChanges, 1)
		assert.Equal(t, models.ClaimPaid, result.StatusChanges[0].PreviousStatus)
		assert.Equal(t, models.ClaimPending, result.StatusChanges[0].NewStatus)

		links, err := f.store.Repos().Payments.GetClaimPayments(ctx, payment.ID)
		require.NoError(t, err)
		assert.Empty(t, links)
		checkStatusInvariant(t, f, payment.ID)
	})

	t.Run("Nothing To Undo", func(t *testing.T) {
		f := newFixture()
		payment := f.seedPayment(uuid.New(), d(1000))

		_, err := f.service.UndoReconciliation(ctx, payment.ID, "tester")
		assert.True(t, errs.IsBusiness(err))
		assert.Equal(t, "payment.reconcile.nothingToUndo", errs.CodeOf(err))
	})
}

func TestAutoReconcilePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Exact Match Auto Reconciles", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		f.seedClaim(payerID, d(1000))
		payment := f.seedPayment(payerID, d(1000))

		result, err := f.service.AutoReconcilePayment(ctx, payment.ID, 0.8, "tester")
		require.NoError(t, err)
		assert.Equal(t, models.ReconciliationReconciled, result.Payment.ReconciliationStatus)
		checkStatusInvariant(t, f, payment.ID)
	})

	t.Run("Threshold Out Of Range", func(t *testing.T) {
		f := newFixture()
		payment := f.seedPayment(uuid.New(), d(1000))

		_, err := f.service.AutoReconcilePayment(ctx, payment.ID, 50, "tester")
		assert.True(t, errs.IsBusiness(err))
		assert.Equal(t, "payment.reconcile.thresholdOutOfRange", errs.CodeOf(err))
	})

	t.Run("No Matches Above Threshold", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		f.seedClaim(payerID, d(950))
		payment := f.seedPayment(payerID, d(1000))

		_, err := f.service.AutoReconcilePayment(ctx, payment.ID, 0.8, "tester")
		assert.True(t, errs.IsBusiness(err))
		assert.Equal(t, "payment.reconcile.noMatchesAboveThreshold", errs.CodeOf(err))
	})
}

func TestBatchReconcilePayments(t *testing.T) {
	ctx := context.Background()

	t.Run("One Failure Does Not Abort Batch", func(t *testing.T) {
		f := newFixture()
		payerID := uuid.New()
		goodClaim := f.seedClaim(payerID, d(500))
		goodPayment := f.seedPayment(payerID, d(500))
		badPayment := f.seedPayment(payerID, d(100))

		result := f.service.BatchReconcilePayments(ctx, []BatchItem{
			{PaymentID: goodPayment.ID, Request: ReconcileRequest{
				ClaimPayments: []ClaimPaymentRequest{{ClaimID: goodClaim.ID, Amount: d(500)}},
			}},
			{PaymentID: badPayment.ID, Request: ReconcileRequest{
				ClaimPayments: []ClaimPaymentRequest{{ClaimID: goodClaim.ID, Amount: d(500)}},
			}},
		}, "tester")

		require.Len(t, result.Successful, 1)
		assert.Equal(t, goodPayment.ID, result.Successful[0])
		require.Len(t, result.Failed, 1)
		assert.Equal(t, badPayment.ID, result.Failed[0].PaymentID)

		// the successful item stays committed
		checkStatusInvariant(t, f, goodPayment.ID)
		payment, err := f.store.Repos().Payments.FindByID(ctx, goodPayment.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReconciliationReconciled, payment.ReconciliationStatus)
	})
}
