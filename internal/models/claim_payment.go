package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClaimPayment is the allocation of part of one payment to one claim. Rows are
// owned by the payment: undo or re-reconciliation removes and replaces them.
type ClaimPayment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID  uuid.UUID       `gorm:"type:uuid;index:idx_claim_payment,unique" json:"payment_id"`
	ClaimID    uuid.UUID       `gorm:"type:uuid;index:idx_claim_payment,unique" json:"claim_id"`
	PaidAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"paid_amount"`
	Status     string          `gorm:"type:varchar(12);default:active" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	CreatedBy  string          `json:"created_by"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`

	Adjustments []PaymentAdjustment `gorm:"foreignKey:ClaimPaymentID" json:"adjustments,omitempty"`
}

func (ClaimPayment) TableName() string { return "claim_payments" }
