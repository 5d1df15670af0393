package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ClaimStatus string

const (
	ClaimSubmitted    ClaimStatus = "SUBMITTED"
	ClaimAcknowledged ClaimStatus = "ACKNOWLEDGED"
	ClaimPending      ClaimStatus = "PENDING"
	ClaimPaid         ClaimStatus = "PAID"
	ClaimPartialPaid  ClaimStatus = "PARTIAL_PAID"
	ClaimDenied       ClaimStatus = "DENIED"
	ClaimVoid         ClaimStatus = "VOID"
)

// Claim is owned by the billing subsystem; reconciliation only reads it and
// moves its status as a side effect of allocating payments.
type Claim struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClaimNumber string          `gorm:"uniqueIndex" json:"claim_number"`
	PayerID     uuid.UUID       `gorm:"type:uuid;index" json:"payer_id"`
	ClientName  string          `json:"client_name"`
	ProgramCode string          `gorm:"index" json:"program_code"`
	ServiceDate time.Time       `gorm:"index" json:"service_date"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	ClaimStatus ClaimStatus     `gorm:"type:varchar(16);index" json:"claim_status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Claim) TableName() string { return "claims" }
