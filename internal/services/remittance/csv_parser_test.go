package remittance

import (
	"testing"

	"hcbs-billing-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `H,2026-01-15,1500.00,REF-100,CHK-200,RA-300,PAYER-XYZ,EFT
D,CLM-001,2026-01-02,1000.00,900.00,100.00,CO-45
D,CLM-002,2026-01-03,700.00,600.00,100.00,CO-45|PR-1
`

func TestCSVParser(t *testing.T) {
	parser := NewCSVParser()

	t.Run("Parses Header And Details", func(t *testing.T) {
		parsed, err := parser.Parse([]byte(sampleCSV), models.FileTypeCSV)
		require.NoError(t, err)

		assert.Equal(t, "2026-01-15", parsed.Header.PaymentDate.Format("2006-01-02"))
		assert.True(t, parsed.Header.PaymentAmount.Equal(decimal.NewFromFloat(1500)))
		assert.Equal(t, "REF-100", parsed.Header.ReferenceNumber)
		assert.Equal(t, "EFT", parsed.Header.PaymentMethod)

		require.Len(t, parsed.Details, 2)
		assert.Equal(t, "CLM-001", parsed.Details[0].ClaimNumber)
		assert.True(t, parsed.Details[0].PaidAmount.Equal(decimal.NewFromFloat(900)))
		assert.Equal(t, []string{"CO-45", "PR-1"}, parsed.Details[1].AdjustmentCodes)
	})

	t.Run("Rejects Non-CSV File Type", func(t *testing.T) {
		_, err := parser.Parse([]byte(sampleCSV), models.FileTypeEDI835)
		assert.Error(t, err)
	})

	t.Run("Rejects Missing Header", func(t *testing.T) {
		_, err := parser.Parse([]byte("D,CLM-001,2026-01-02,1,1,0,\n"), models.FileTypeCSV)
		assert.Error(t, err)
	})

	t.Run("Rejects Negative Payment Amount", func(t *testing.T) {
		_, err := parser.Parse([]byte("H,2026-01-15,-5.00,R,C,RA,P,EFT\n"), models.FileTypeCSV)
		assert.Error(t, err)
	})

	t.Run("Rejects Bad Detail Date", func(t *testing.T) {
		bad := "H,2026-01-15,10.00,R,C,RA,P,EFT\nD,CLM-001,01/02/2026,1,1,0,\n"
		_, err := parser.Parse([]byte(bad), models.FileTypeCSV)
		assert.Error(t, err)
	})
}
