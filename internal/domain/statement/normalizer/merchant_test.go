package normalizer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
)

func TestSanitizer_Normalize(t *testing.T) {
	s := NewSanitizer()
	debit := decimal.NewFromFloat(-42.50)
	credit := decimal.NewFromFloat(1500.00)

	tests := []struct {
		name         string
		input        string
		amount       decimal.Decimal
		wantName     string
		wantCategory string
		wantKind     statement.Kind
	}{
		{
			name:         "careem quik with card mask and city",
			input:        "POS CAREEM QUIK 4031XXXX1209 Dubai:AE",
			amount:       debit,
			wantName:     "CAREEM QUIK",
			wantCategory: "Groceries",
			wantKind:     statement.KindSpend,
		},
		{
			name:         "careem ride is transport",
			input:        "CAREEM RIDES DUBAI",
			amount:       debit,
			wantName:     "Careem",
			wantCategory: "Transport",
			wantKind:     statement.KindSpend,
		},
		{
			name:         "netflix subscription",
			input:        "NETFLIX.COM AMSTERDAM NL",
			amount:       debit,
			wantName:     "Netflix",
			wantCategory: "Subscriptions",
			wantKind:     statement.KindSpend,
		},
		{
			name:         "lulu hypermarket",
			input:        "LULU HYPER ABU DHABI:AE",
			amount:       debit,
			wantName:     "Lulu Hypermarket",
			wantCategory: "Groceries",
			wantKind:     statement.KindSpend,
		},
		{
			name:         "salary credit is income",
			input:        "SALARY PAYMENT ACME LLC",
			amount:       credit,
			wantName:     "Salary Payment Acme LLC",
			wantCategory: "",
			wantKind:     statement.KindIncome,
		},
		{
			name:         "refund credit is a reimbursement",
			input:        "REFUND NOON ORDER 12345678",
			amount:       credit,
			wantName:     "Noon",
			wantCategory: "Shopping",
			wantKind:     statement.KindReimbursement,
		},
		{
			name:         "iban run is a transfer",
			input:        "TRF TO AE070331234567890123456",
			amount:       debit,
			wantName:     "TRF TO Ae070331234567890123456",
			wantCategory: "",
			wantKind:     statement.KindTransfer,
		},
		{
			name:         "unknown merchant gets title case",
			input:        "SOME CORNER CAFETERIA DUBAI 558899",
			amount:       debit,
			wantName:     "Some Corner Cafeteria",
			wantCategory: "",
			wantKind:     statement.KindSpend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Normalize(tt.input, tt.amount)

			assert.Equal(t, tt.input, got.OriginalName)
			assert.Equal(t, tt.wantName, got.NormalizedName)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantKind, got.Kind)
		})
	}
}

func TestSanitizer_AddPattern(t *testing.T) {
	s := NewSanitizer()

	require.NoError(t, s.AddPattern(`CORNER\s*CAFETERIA`, "Corner Cafeteria", "Food & Drink"))

	got := s.Normalize("SOME CORNER CAFETERIA DUBAI", decimal.NewFromInt(-10))
	assert.Equal(t, "Corner Cafeteria", got.NormalizedName)
	assert.Equal(t, "Food & Drink", got.Category)

	assert.Error(t, s.AddPattern(`(unclosed`, "x", "y"))
}

func TestCleanMerchantName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"POS STARBUCKS 4111********1111 DUBAI", "STARBUCKS"},
		{"CARD SPINNEYS MOTOR CITY Dubai:AE", "SPINNEYS MOTOR CITY"},
		{"NOON MINUTES Abu Dhabi", "NOON MINUTES"},
		{"ADNOC 889 RAS AL KHAIMAH", "ADNOC 889"},
		{"  WAITROSE   DXB  ", "WAITROSE"},
		{"TERMINAL PARKING 99887766", "TERMINAL PARKING"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanMerchantName(tt.input), "input %q", tt.input)
	}
}

func TestClassifyKind_ZeroAmount(t *testing.T) {
	assert.Equal(t, statement.KindUnknown, classifyKind("SOMETHING", decimal.Zero))
}
