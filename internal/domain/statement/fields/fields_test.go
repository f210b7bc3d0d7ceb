package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"ISO", "2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"slash DMY", "15/01/2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"slash DMY no padding", "5/1/2024", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), false},
		{"dash DMY", "15-01-2024", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"two digit year below pivot", "15/01/24", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"two digit year above pivot", "15/01/99", time.Date(1999, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"pivot year itself is 2000s", "15/01/50", time.Date(2050, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"surrounding whitespace", "  15/01/2024 ", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"impossible day", "31/02/24", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		want         string
		wantCurrency string
		wantErr      bool
	}{
		{"grouped thousands", "8,457.90", "8457.9", "", false},
		{"bare decimals", "108.35", "108.35", "", false},
		{"currency suffix", "108.35,AED", "108.35", "AED", false},
		{"lowercase currency suffix", "99.00,usd", "99", "USD", false},
		{"continental comma", "302,00", "302", "", false},
		{"negative", "-45.00", "-45", "", false},
		{"millions", "1,234,567.89", "1234567.89", "", false},
		{"not a number", "abc", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, currency, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.wantCurrency, currency)
		})
	}
}

func row(text string) statement.Row {
	return statement.Row{Text: text, LineStart: 4, LineEnd: 4}
}

func TestParser_ParseRow_BalanceTable(t *testing.T) {
	p := NewParser(DefaultOptions())

	t.Run("rightmost amount is the balance", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 CAREEM QUIK DXB 32.50 8,457.90"), statement.TypeTableWithBalance)

		require.Nil(t, fail)
		assert.Equal(t, "CAREEM QUIK DXB", tx.Description)
		assert.Equal(t, "-32.5", tx.Amount.String())
		require.NotNil(t, tx.Balance)
		assert.Equal(t, "8457.9", tx.Balance.String())
		assert.Equal(t, "AED", tx.Currency)
		assert.Equal(t, statement.TypeTableWithBalance, tx.StatementType)
		assert.Equal(t, 4, tx.LineStart)
	})

	t.Run("credit marker flips the sign", func(t *testing.T) {
		tx, fail := p.ParseRow(row("25/01/2024 SALARY PAYMENT 12,000.00 CR 20,457.90"), statement.TypeTableWithBalance)

		require.Nil(t, fail)
		assert.Equal(t, "12000", tx.Amount.String())
		assert.Equal(t, "SALARY PAYMENT", tx.Description)
	})

	t.Run("debit cell in a pipe layout", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024|LULU HYPERMARKET|245.30||8,212.60"), statement.TypeTableWithBalance)

		require.Nil(t, fail)
		assert.Equal(t, "-245.3", tx.Amount.String())
		assert.Equal(t, "LULU HYPERMARKET", tx.Description)
	})

	t.Run("credit cell in a pipe layout", func(t *testing.T) {
		tx, fail := p.ParseRow(row("26/01/2024|SALARY TRANSFER||5,000.00|13,212.60"), statement.TypeTableWithBalance)

		require.Nil(t, fail)
		assert.Equal(t, "5000", tx.Amount.String())
	})

	t.Run("single amount means no balance", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 TALABAT DELIVERY 89.75"), statement.TypeTableWithBalance)

		require.Nil(t, fail)
		assert.Equal(t, "-89.75", tx.Amount.String())
		assert.Nil(t, tx.Balance)
	})

	t.Run("zero amount is dropped", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 MONTHLY FEE WAIVED 0.00"), statement.TypeTableWithBalance)

		assert.Nil(t, tx)
		require.NotNil(t, fail)
		assert.Equal(t, FailZeroAmount, fail.Reason)
	})

	t.Run("missing date is dropped", func(t *testing.T) {
		_, fail := p.ParseRow(row("OPENING BALANCE 1,500.00"), statement.TypeTableWithBalance)

		require.NotNil(t, fail)
		assert.Equal(t, FailNoDate, fail.Reason)
	})

	t.Run("missing amount is dropped", func(t *testing.T) {
		_, fail := p.ParseRow(row("15/01/2024 PENDING AUTHORIZATION"), statement.TypeTableWithBalance)

		require.NotNil(t, fail)
		assert.Equal(t, FailNoAmount, fail.Reason)
	})

	t.Run("truncated description is dropped", func(t *testing.T) {
		_, fail := p.ParseRow(row("15/01/2024 AB 34.50 142.00"), statement.TypeTableWithBalance)

		require.NotNil(t, fail)
		assert.Equal(t, FailTruncatedDesc, fail.Reason)
	})
}

func TestParser_ParseRow_DualDate(t *testing.T) {
	p := NewParser(DefaultOptions())

	t.Run("two dates and a defaulted debit", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 17/01/2024 NOON MINUTES ABU DHABI 64.20"), statement.TypeDualDateSingleAmount)

		require.Nil(t, fail)
		assert.Equal(t, "NOON MINUTES ABU DHABI", tx.Description)
		assert.Equal(t, "-64.2", tx.Amount.String())
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), tx.Date)
		require.NotNil(t, tx.PostingDate)
		assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), *tx.PostingDate)
	})

	t.Run("single date doubles as posting date", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 ETISALAT RECHARGE 150.00"), statement.TypeDualDateSingleAmount)

		require.Nil(t, fail)
		require.NotNil(t, tx.PostingDate)
		assert.True(t, tx.Date.Equal(*tx.PostingDate))
	})

	t.Run("credit marker wins over the default sign", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 16/01/2024 CASHBACK REWARD 25.00 CR"), statement.TypeDualDateSingleAmount)

		require.Nil(t, fail)
		assert.Equal(t, "25", tx.Amount.String())
	})

	t.Run("refund keyword flips the sign", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 18/01/2024 REFUND AMAZON.AE ORDER 312.00"), statement.TypeDualDateSingleAmount)

		require.Nil(t, fail)
		assert.Equal(t, "312", tx.Amount.String())
	})

	t.Run("currency suffix overrides the default", func(t *testing.T) {
		tx, fail := p.ParseRow(row("15/01/2024 16/01/2024 DUBAI DUTY FREE 108.35,USD"), statement.TypeDualDateSingleAmount)

		require.Nil(t, fail)
		assert.Equal(t, "USD", tx.Currency)
		// A currency suffix is not a credit marker; the default sign holds.
		assert.Equal(t, "-108.35", tx.Amount.String())
	})
}

func TestParser_ParseRow_Generic(t *testing.T) {
	p := NewParser(DefaultOptions())

	tx, fail := p.ParseRow(row("15/01/2024 DEWA BILL PAYMENT 420.00"), statement.TypeUnknown)

	require.Nil(t, fail)
	assert.Equal(t, "DEWA BILL PAYMENT", tx.Description)
	assert.Equal(t, "-420", tx.Amount.String())
	assert.Equal(t, statement.TypeUnknown, tx.StatementType)
	assert.Nil(t, tx.Balance)
}

func TestFailureString(t *testing.T) {
	f := Failure{
		Row:    statement.Row{LineStart: 7, LineEnd: 9},
		Reason: FailBadDate,
	}
	assert.Equal(t, "line 7-9: unparseable date", f.String())
}
