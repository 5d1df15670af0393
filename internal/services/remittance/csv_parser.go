package remittance

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"hcbs-billing-backend/internal/models"

	"github.com/shopspring/decimal"
)

// CSVParser reads the record-prefixed CSV layout payers deliver when they
// cannot produce an 835:
//
//	H,<payment_date>,<payment_amount>,<reference>,<check>,<remittance_number>,<payer_identifier>,<method>
//	D,<claim_number>,<service_date>,<billed>,<paid>,<adjustment>,<code|code|...>
//
// Dates are yyyy-mm-dd. Exactly one H record must come first.
type CSVParser struct{}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) Parse(content []byte, fileType models.RemittanceFileType) (*ParsedRemittance, error) {
	if fileType != models.FileTypeCSV {
		return nil, fmt.Errorf("unsupported remittance file type %s", fileType)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty remittance file")
	}

	parsed := &ParsedRemittance{}
	for i, rec := range records {
		switch rec[0] {
		case "H":
			if i != 0 {
				return nil, fmt.Errorf("line %d: header record after detail records", i+1)
			}
			header, err := parseHeader(rec)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			parsed.Header = *header
		case "D":
			detail, err := parseDetail(rec)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			parsed.Details = append(parsed.Details, *detail)
		default:
			return nil, fmt.Errorf("line %d: unknown record type %q", i+1, rec[0])
		}
	}
	if parsed.Header.PaymentDate.IsZero() {
		return nil, fmt.Errorf("missing header record")
	}
	return parsed, nil
}

func parseHeader(rec []string) (*ParsedHeader, error) {
	if len(rec) < 8 {
		return nil, fmt.Errorf("header record needs 8 fields, got %d", len(rec))
	}
	date, err := time.Parse("2006-01-02", rec[1])
	if err != nil {
		return nil, fmt.Errorf("payment date: %w", err)
	}
	amount, err := decimal.NewFromString(rec[2])
	if err != nil {
		return nil, fmt.Errorf("payment amount: %w", err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("payment amount %s is negative", amount)
	}
	return &ParsedHeader{
		PaymentDate:      date,
		PaymentAmount:    amount,
		ReferenceNumber:  rec[3],
		CheckNumber:      rec[4],
		RemittanceNumber: rec[5],
		PayerIdentifier:  rec[6],
		PaymentMethod:    strings.ToUpper(strings.TrimSpace(rec[7])),
	}, nil
}

func parseDetail(rec []string) (*ParsedDetail, error) {
	if len(rec) < 7 {
		return nil, fmt.Errorf("detail record needs 7 fields, got %d", len(rec))
	}
	if rec[1] == "" {
		return nil, fmt.Errorf("missing claim number")
	}
	date, err := time.Parse("2006-01-02", rec[2])
	if err != nil {
		return nil, fmt.Errorf("service date: %w", err)
	}
	billed, err := decimal.NewFromString(rec[3])
	if err != nil {
		return nil, fmt.Errorf("billed amount: %w", err)
	}
	paid, err := decimal.NewFromString(rec[4])
	if err != nil {
		return nil, fmt.Errorf("paid amount: %w", err)
	}
	adjusted, err := decimal.NewFromString(rec[5])
	if err != nil {
		return nil, fmt.Errorf("adjustment amount: %w", err)
	}

	var codes []string
	if rec[6] != "" {
		codes = strings.Split(rec[6], "|")
	}
	return &ParsedDetail{
		ClaimNumber:      rec[1],
		ServiceDate:      date,
		BilledAmount:     billed,
		PaidAmount:       paid,
		AdjustmentAmount: adjusted,
		AdjustmentCodes:  codes,
	}, nil
}
