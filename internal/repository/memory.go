package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"hcbs-billing-backend/internal/errs"
	"hcbs-billing-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory implementation of the repository surface, used
// by service tests. WithinTx snapshots state and restores it on error, giving
// the same commit-or-rollback contract as the database.
type MemoryStore struct {
	mu            sync.Mutex
	payments      map[uuid.UUID]models.Payment
	claims        map[uuid.UUID]models.Claim
	claimPayments map[uuid.UUID]models.ClaimPayment
	adjustments   map[uuid.UUID]models.PaymentAdjustment
	remittances   map[uuid.UUID]models.RemittanceInfo
	remitDetails  map[uuid.UUID]models.RemittanceDetail
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:      make(map[uuid.UUID]models.Payment),
		claims:        make(map[uuid.UUID]models.Claim),
		claimPayments: make(map[uuid.UUID]models.ClaimPayment),
		adjustments:   make(map[uuid.UUID]models.PaymentAdjustment),
		remittances:   make(map[uuid.UUID]models.RemittanceInfo),
		remitDetails:  make(map[uuid.UUID]models.RemittanceDetail),
	}
}

func (s *MemoryStore) Repos() *Repos {
	return &Repos{
		Payments:    &memPaymentRepo{s: s},
		Claims:      &memClaimRepo{s: s},
		Adjustments: &memAdjustmentRepo{s: s},
	}
}

// Seed helpers load fixtures directly, outside any transaction.
func (s *MemoryStore) SeedClaim(c models.Claim) { s.claims[c.ID] = c }

func (s *MemoryStore) SeedPayment(p models.Payment) { s.payments[p.ID] = p }

func (s *MemoryStore) SeedClaimPayment(cp models.ClaimPayment) { s.claimPayments[cp.ID] = cp }

func (s *MemoryStore) SeedAdjustment(adj models.PaymentAdjustment) { s.adjustments[adj.ID] = adj }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(r *Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(s.Repos()); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *MemoryStore) clone() *MemoryStore {
	c := NewMemoryStore()
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.claims {
		c.claims[k] = v
	}
	for k, v := range s.claimPayments {
		c.claimPayments[k] = v
	}
	for k, v := range s.adjustments {
		c.adjustments[k] = v
	}
	for k, v := range s.remittances {
		c.remittances[k] = v
	}
	for k, v := range s.remitDetails {
		c.remitDetails[k] = v
	}
	return c
}

func (s *MemoryStore) restore(c *MemoryStore) {
	s.payments = c.payments
	s.claims = c.claims
	s.claimPayments = c.claimPayments
	s.adjustments = c.adjustments
	s.remittances = c.remittances
	s.remitDetails = c.remitDetails
}

type memClaimRepo struct{ s *MemoryStore }

func (r *memClaimRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Claim, error) {
	if c, ok := r.s.claims[id]; ok {
		return &c, nil
	}
	return nil, errs.NotFound("claim", id)
}

func (r *memClaimRepo) FindByClaimNumber(_ context.Context, claimNumber string) (*models.Claim, error) {
	for _, c := range r.s.claims {
		if c.ClaimNumber == claimNumber {
			claim := c
			return &claim, nil
		}
	}
	return nil, errs.NotFound("claim", claimNumber)
}

func (r *memClaimRepo) FindWithAdvancedQuery(_ context.Context, q ClaimQuery) ([]models.Claim, error) {
	var out []models.Claim
	for _, c := range r.s.claims {
		if q.PayerID != nil && c.PayerID != *q.PayerID {
			continue
		}
		if len(q.Statuses) > 0 && !containsClaimStatus(q.Statuses, c.ClaimStatus) {
			continue
		}
		if q.ServiceFrom != nil && c.ServiceDate.Before(*q.ServiceFrom) {
			continue
		}
		if q.ServiceTo != nil && c.ServiceDate.After(*q.ServiceTo) {
			continue
		}
		if q.SubmittedBefore != nil && !c.SubmittedAt.Before(*q.SubmittedBefore) {
			continue
		}
		if q.ProgramCode != "" && c.ProgramCode != q.ProgramCode {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *memClaimRepo) UpdateStatus(_ context.Context, claimID uuid.UUID, newStatus models.ClaimStatus, _, _ string) error {
	c, ok := r.s.claims[claimID]
	if !ok {
		return errs.NotFound("claim", claimID)
	}
	c.ClaimStatus = newStatus
	c.UpdatedAt = time.Now()
	r.s.claims[claimID] = c
	return nil
}

type memPaymentRepo struct{ s *MemoryStore }

func (r *memPaymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.s.payments[p.ID] = *p
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	if p, ok := r.s.payments[id]; ok {
		return &p, nil
	}
	return nil, errs.NotFound("payment", id)
}

func (r *memPaymentRepo) FindByFilter(_ context.Context, q PaymentQuery) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.s.payments {
		if q.PayerID != nil && p.PayerID != *q.PayerID {
			continue
		}
		if len(q.Statuses) > 0 && !containsReconStatus(q.Statuses, p.ReconciliationStatus) {
			continue
		}
		if q.DateFrom != nil && p.PaymentDate.Before(*q.DateFrom) {
			continue
		}
		if q.DateTo != nil && p.PaymentDate.After(*q.DateTo) {
			continue
		}
		if q.CreatedBefore != nil && !p.PaymentDate.Before(*q.CreatedBefore) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.Before(out[j].PaymentDate) })
	return out, nil
}

func (r *memPaymentRepo) SaveWithVersion(_ context.Context, p *models.Payment) error {
	stored, ok := r.s.payments[p.ID]
	if !ok {
		return errs.NotFound("payment", p.ID)
	}
	if stored.Version != p.Version {
		return errs.Business("payment.reconcile.conflict",
			"payment %s was modified concurrently", p.ID)
	}
	p.Version++
	p.UpdatedAt = time.Now()
	r.s.payments[p.ID] = *p
	return nil
}

func (r *memPaymentRepo) UpdateReconciliationStatus(_ context.Context, paymentID uuid.UUID, status models.ReconciliationStatus) error {
	p, ok := r.s.payments[paymentID]
	if !ok {
		return errs.NotFound("payment", paymentID)
	}
	p.ReconciliationStatus = status
	p.UpdatedAt = time.Now()
	r.s.payments[paymentID] = p
	return nil
}

func (r *memPaymentRepo) AddClaimPayment(_ context.Context, cp *models.ClaimPayment) error {
	r.s.claimPayments[cp.ID] = *cp
	return nil
}

func (r *memPaymentRepo) RemoveClaimPayments(_ context.Context, paymentID uuid.UUID) error {
	for id, cp := range r.s.claimPayments {
		if cp.PaymentID == paymentID {
			delete(r.s.claimPayments, id)
		}
	}
	return nil
}

func (r *memPaymentRepo) GetClaimPayments(_ context.Context, paymentID uuid.UUID) ([]models.ClaimPayment, error) {
	var out []models.ClaimPayment
	for _, cp := range r.s.claimPayments {
		if cp.PaymentID == paymentID {
			for _, adj := range r.s.adjustments {
				if adj.ClaimPaymentID != nil && *adj.ClaimPaymentID == cp.ID {
					cp.Adjustments = append(cp.Adjustments, adj)
				}
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memPaymentRepo) GetClaimPaymentByID(_ context.Context, id uuid.UUID) (*models.ClaimPayment, error) {
	if cp, ok := r.s.claimPayments[id]; ok {
		return &cp, nil
	}
	return nil, errs.NotFound("claimPayment", id)
}

func (r *memPaymentRepo) GetClaimPaymentTotals(_ context.Context, claimIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	wanted := make(map[uuid.UUID]bool, len(claimIDs))
	for _, id := range claimIDs {
		wanted[id] = true
	}
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, cp := range r.s.claimPayments {
		if wanted[cp.ClaimID] {
			totals[cp.ClaimID] = totals[cp.ClaimID].Add(cp.PaidAmount)
		}
	}
	return totals, nil
}

func (r *memPaymentRepo) AddPaymentAdjustment(_ context.Context, adj *models.PaymentAdjustment) error {
	r.s.adjustments[adj.ID] = *adj
	return nil
}

func (r *memPaymentRepo) SaveRemittanceInfo(_ context.Context, info *models.RemittanceInfo) error {
	r.s.remittances[info.ID] = *info
	for _, d := range info.Details {
		r.s.remitDetails[d.ID] = d
	}
	return nil
}

type memAdjustmentRepo struct{ s *MemoryStore }

func (r *memAdjustmentRepo) record(adj models.PaymentAdjustment) AdjustmentRecord {
	rec := AdjustmentRecord{PaymentAdjustment: adj}
	if adj.ClaimID != nil {
		rec.ClaimID = *adj.ClaimID
	}
	if adj.ClaimPaymentID != nil {
		if cp, ok := r.s.claimPayments[*adj.ClaimPaymentID]; ok {
			rec.PaymentID = cp.PaymentID
			rec.ClaimID = cp.ClaimID
			if p, ok := r.s.payments[cp.PaymentID]; ok {
				rec.PayerID = p.PayerID
			}
		}
	}
	// Pure denials carry no payment link; the claim still names the payer.
	if rec.PayerID == uuid.Nil {
		if c, ok := r.s.claims[rec.ClaimID]; ok {
			rec.PayerID = c.PayerID
		}
	}
	return rec
}

func (r *memAdjustmentRepo) FindRecords(_ context.Context, f AdjustmentFilter) ([]AdjustmentRecord, error) {
	var out []AdjustmentRecord
	for _, adj := range r.s.adjustments {
		rec := r.record(adj)
		if f.From != nil && adj.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && adj.CreatedAt.After(*f.To) {
			continue
		}
		if f.PayerID != nil && rec.PayerID != *f.PayerID {
			continue
		}
		if len(f.Types) > 0 && !containsAdjType(f.Types, adj.AdjustmentType) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memAdjustmentRepo) FindForPayment(_ context.Context, paymentID uuid.UUID) ([]AdjustmentRecord, error) {
	var out []AdjustmentRecord
	for _, adj := range r.s.adjustments {
		rec := r.record(adj)
		if rec.PaymentID == paymentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memAdjustmentRepo) FindForClaim(_ context.Context, claimID uuid.UUID) ([]AdjustmentRecord, error) {
	var out []AdjustmentRecord
	for _, adj := range r.s.adjustments {
		rec := r.record(adj)
		if rec.ClaimID == claimID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func containsClaimStatus(list []models.ClaimStatus, s models.ClaimStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsReconStatus(list []models.ReconciliationStatus, s models.ReconciliationStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAdjType(list []models.AdjustmentType, t models.AdjustmentType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
