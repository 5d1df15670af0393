package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AdjustmentType string

const (
	AdjustmentContractual AdjustmentType = "CONTRACTUAL"
	AdjustmentDeductible  AdjustmentType = "DEDUCTIBLE"
	AdjustmentCoinsurance AdjustmentType = "COINSURANCE"
	AdjustmentCopay       AdjustmentType = "COPAY"
	AdjustmentNoncovered  AdjustmentType = "NONCOVERED"
	AdjustmentTransfer    AdjustmentType = "TRANSFER"
	AdjustmentOther       AdjustmentType = "OTHER"
)

// AdjustmentTypes lists every type in a stable order, for dense reports.
func AdjustmentTypes() []AdjustmentType {
	return []AdjustmentType{
		AdjustmentContractual,
		AdjustmentDeductible,
		AdjustmentCoinsurance,
		AdjustmentCopay,
		AdjustmentNoncovered,
		AdjustmentTransfer,
		AdjustmentOther,
	}
}

// PaymentAdjustment is one coded monetary adjustment line. It hangs off a
// ClaimPayment, except pure denials which reference the claim directly.
type PaymentAdjustment struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ClaimPaymentID   *uuid.UUID      `gorm:"type:uuid;index" json:"claim_payment_id,omitempty"`
	ClaimID          *uuid.UUID      `gorm:"type:uuid;index" json:"claim_id,omitempty"`
	AdjustmentType   AdjustmentType  `gorm:"type:varchar(16);index" json:"adjustment_type"`
	AdjustmentCode   string          `gorm:"index" json:"adjustment_code"`
	AdjustmentAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"adjustment_amount"`
	Description      string          `json:"description"`
	Status           string          `gorm:"type:varchar(12);default:active" json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	CreatedBy        string          `json:"created_by"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (PaymentAdjustment) TableName() string { return "payment_adjustments" }
