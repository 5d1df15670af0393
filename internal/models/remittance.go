package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RemittanceFileType string

const (
	FileTypeEDI835 RemittanceFileType = "EDI_835"
	FileTypeCSV    RemittanceFileType = "CSV"
	FileTypePDF    RemittanceFileType = "PDF"
	FileTypeExcel  RemittanceFileType = "EXCEL"
	FileTypeCustom RemittanceFileType = "CUSTOM"
)

// RemittanceInfo is the header of one imported remittance file, one-to-one
// with the payment it produced.
type RemittanceInfo struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID        uuid.UUID          `gorm:"type:uuid;uniqueIndex" json:"payment_id"`
	RemittanceNumber string             `gorm:"index" json:"remittance_number"`
	PayerIdentifier  string             `json:"payer_identifier"`
	FileType         RemittanceFileType `gorm:"type:varchar(12)" json:"file_type"`
	FileName         string             `json:"file_name"`
	ReceivedAt       time.Time          `json:"received_at"`
	DetailCount      int                `json:"detail_count"`
	MatchedCount     int                `json:"matched_count"`
	CreatedAt        time.Time          `json:"created_at"`
	DeletedAt        gorm.DeletedAt     `gorm:"index" json:"-"`

	Details []RemittanceDetail `gorm:"foreignKey:RemittanceInfoID" json:"details,omitempty"`
}

func (RemittanceInfo) TableName() string { return "remittance_info" }

// RemittanceDetail is one adjudicated line from a remittance file. ClaimID is
// nil when no claim matched; the row is kept for manual reconciliation.
type RemittanceDetail struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RemittanceInfoID uuid.UUID       `gorm:"type:uuid;index" json:"remittance_info_id"`
	ClaimNumber      string          `gorm:"index" json:"claim_number"`
	ClaimID          *uuid.UUID      `gorm:"type:uuid;index" json:"claim_id,omitempty"`
	ServiceDate      time.Time       `json:"service_date"`
	BilledAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"billed_amount"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(12,2)" json:"paid_amount"`
	AdjustmentAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"adjustment_amount"`
	AdjustmentCodes  datatypes.JSON  `json:"adjustment_codes"`
	CreatedAt        time.Time       `json:"created_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (RemittanceDetail) TableName() string { return "remittance_details" }
