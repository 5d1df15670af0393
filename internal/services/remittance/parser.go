package remittance

import (
	"time"

	"hcbs-billing-backend/internal/models"

	"github.com/shopspring/decimal"
)

// ParsedHeader is the remittance-level record a parser extracts from a file.
type ParsedHeader struct {
	PaymentDate      time.Time
	PaymentAmount    decimal.Decimal
	ReferenceNumber  string
	CheckNumber      string
	RemittanceNumber string
	PayerIdentifier  string
	PaymentMethod    string
}

// ParsedDetail is one adjudicated claim line from a remittance file.
type ParsedDetail struct {
	ClaimNumber      string
	ServiceDate      time.Time
	BilledAmount     decimal.Decimal
	PaidAmount       decimal.Decimal
	AdjustmentAmount decimal.Decimal
	AdjustmentCodes  []string
}

type ParsedRemittance struct {
	Header  ParsedHeader
	Details []ParsedDetail
}

// Parser turns raw remittance file bytes into structured records. Parsing is
// a collaborator concern; ingestion only consumes this shape.
type Parser interface {
	Parse(content []byte, fileType models.RemittanceFileType) (*ParsedRemittance, error)
}
