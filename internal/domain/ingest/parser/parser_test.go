package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	t.Run("single amount column", func(t *testing.T) {
		csv := `date,description,amount,balance,currency
15/01/2024,CAREEM QUIK DUBAI,-32.50,8457.90,AED
16/01/2024,SALARY PAYMENT,12000.00,20457.90,AED`

		result, err := New(Config{}).Parse(strings.NewReader(csv))

		require.NoError(t, err)
		assert.Equal(t, 2, result.TotalRows)
		assert.Equal(t, 2, result.ParsedRows)
		assert.Empty(t, result.Errors)
		require.Len(t, result.Transactions, 2)

		tx := result.Transactions[0]
		assert.Equal(t, "CAREEM QUIK DUBAI", tx.Description)
		assert.Equal(t, "-32.5", tx.Amount.String())
		assert.Equal(t, "AED", tx.Currency)
		require.NotNil(t, tx.Balance)
		assert.Equal(t, "8457.9", tx.Balance.String())

		assert.Equal(t, "12000", result.Transactions[1].Amount.String())
	})

	t.Run("debit and credit columns", func(t *testing.T) {
		csv := `date,description,debit,credit
15/01/2024,LULU HYPERMARKET,245.30,
16/01/2024,SALARY TRANSFER,,5000.00
17/01/2024,DEWA,-420.00,`

		result, err := New(Config{}).Parse(strings.NewReader(csv))

		require.NoError(t, err)
		require.Len(t, result.Transactions, 3)
		assert.Equal(t, "-245.3", result.Transactions[0].Amount.String())
		assert.Equal(t, "5000", result.Transactions[1].Amount.String())
		// Debits are negated regardless of the export's own sign convention.
		assert.Equal(t, "-420", result.Transactions[2].Amount.String())
	})

	t.Run("row errors never abort the file", func(t *testing.T) {
		csv := `date,description,amount
15/01/2024,CAREEM,-32.50
not-a-date,TALABAT,-89.75
16/01/2024,,-10.00
17/01/2024,WAIVED FEE,0.00
18/01/2024,NOON,-64.20`

		result, err := New(Config{}).Parse(strings.NewReader(csv))

		require.NoError(t, err)
		assert.Equal(t, 5, result.TotalRows)
		assert.Equal(t, 2, result.ParsedRows)
		require.Len(t, result.Errors, 3)
		assert.Equal(t, "date", result.Errors[0].Column)
		assert.Equal(t, "description", result.Errors[1].Column)
		assert.Equal(t, "amount", result.Errors[2].Column)
		assert.Equal(t, 3, result.Errors[0].Row)
	})

	t.Run("blank date rows are skipped, not errors", func(t *testing.T) {
		csv := `date,description,amount
15/01/2024,CAREEM,-32.50
,,
,Closing balance,`

		result, err := New(Config{}).Parse(strings.NewReader(csv))

		require.NoError(t, err)
		assert.Equal(t, 1, result.ParsedRows)
		assert.Equal(t, 2, result.SkippedRows)
		assert.Empty(t, result.Errors)
	})

	t.Run("semicolon delimiter with continental amounts", func(t *testing.T) {
		csv := `date;description;amount
15/01/2024;CARREFOUR MALL;-431,75`

		result, err := New(Config{Delimiter: ';'}).Parse(strings.NewReader(csv))

		require.NoError(t, err)
		require.Len(t, result.Transactions, 1)
		assert.Equal(t, "-431.75", result.Transactions[0].Amount.String())
	})

	t.Run("metadata prefix lines are skipped", func(t *testing.T) {
		csv := `Account Statement Export
Generated 01/02/2024
date,description,amount
15/01/2024,SPINNEYS,-210.00`

		result, err := New(Config{SkipLines: 2}).Parse(strings.NewReader(csv))

		require.NoError(t, err)
		require.Len(t, result.Transactions, 1)
		// Row numbers count from the top of the file.
		assert.Equal(t, 4, result.Transactions[0].LineStart)
	})

	t.Run("posting date and default currency", func(t *testing.T) {
		csv := `transaction date,posting date,description,amount
15/01/2024,17/01/2024,NETFLIX.COM,-55.99`

		result, err := New(Config{DefaultCurrency: "SAR"}).Parse(strings.NewReader(csv))

		require.NoError(t, err)
		require.Len(t, result.Transactions, 1)
		tx := result.Transactions[0]
		assert.Equal(t, "SAR", tx.Currency)
		require.NotNil(t, tx.PostingDate)
		assert.Equal(t, "2024-01-17", tx.PostingDate.Format("2006-01-02"))
	})
}
