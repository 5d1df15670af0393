package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentMethodEFT        PaymentMethod = "EFT"
	PaymentMethodCheck      PaymentMethod = "CHECK"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodOther      PaymentMethod = "OTHER"
)

type ReconciliationStatus string

const (
	ReconciliationUnreconciled ReconciliationStatus = "UNRECONCILED"
	ReconciliationPartial      ReconciliationStatus = "PARTIALLY_RECONCILED"
	ReconciliationReconciled   ReconciliationStatus = "RECONCILED"
	ReconciliationException    ReconciliationStatus = "EXCEPTION"
)

// Payment is a single incoming remittance, check or EFT. ReconciliationStatus
// is a cached derivation of the linked ClaimPayment amounts, never edited by hand.
type Payment struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	PayerID              uuid.UUID            `gorm:"type:uuid;index" json:"payer_id"`
	PaymentDate          time.Time            `gorm:"index" json:"payment_date"`
	PaymentAmount        decimal.Decimal      `gorm:"type:decimal(12,2)" json:"payment_amount"`
	PaymentMethod        PaymentMethod        `gorm:"type:varchar(16)" json:"payment_method"`
	ReferenceNumber      string               `gorm:"index" json:"reference_number"`
	CheckNumber          string               `json:"check_number"`
	RemittanceID         *uuid.UUID           `gorm:"type:uuid" json:"remittance_id,omitempty"`
	ReconciliationStatus ReconciliationStatus `gorm:"type:varchar(24);index" json:"reconciliation_status"`
	Notes                string               `json:"notes"`
	Status               string               `gorm:"type:varchar(12);default:active" json:"status"`
	Version              int64                `gorm:"default:1" json:"version"`
	CreatedAt            time.Time            `json:"created_at"`
	CreatedBy            string               `json:"created_by"`
	UpdatedAt            time.Time            `json:"updated_at"`
	UpdatedBy            string               `json:"updated_by"`
	DeletedAt            gorm.DeletedAt       `gorm:"index" json:"-"`

	ClaimPayments []ClaimPayment `gorm:"foreignKey:PaymentID" json:"claim_payments,omitempty"`
}

func (Payment) TableName() string { return "payments" }
