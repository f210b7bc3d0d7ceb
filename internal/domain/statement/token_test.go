package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"grouped thousands", "BALANCE 8,457.90", []string{"8,457.90"}},
		{"bare decimals", "CAREEM QUIK 32.50", []string{"32.50"}},
		{"currency suffix", "DUTY FREE 108.35,AED", []string{"108.35,AED"}},
		{"continental decimal comma", "MIETE 302,00", []string{"302,00"}},
		{"negative", "REVERSAL -64.20", []string{"-64.20"}},
		{"multiple amounts in order", "15/01/2024 DEWA 420.00 8,037.90", []string{"420.00", "8,037.90"}},
		{"grouped integer is not an amount", "EARNED 1,234 SKYWARDS MILES", nil},
		{"five digit grouped integer", "12,345 POINTS", nil},
		{"plain integer", "CARD 4532", nil},
		{"single decimal place", "RATE 3.5", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AmountTokens(tt.in))
			assert.Equal(t, len(tt.want) > 0, HasAmountToken(tt.in))
		})
	}
}

func TestDateTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"slash date", "15/01/2024 DEWA", []string{"15/01/2024"}},
		{"dash date", "15-01-2024 DEWA", []string{"15-01-2024"}},
		{"two digit year", "15/01/24 DEWA", []string{"15/01/24"}},
		{"iso date", "2024-01-15 DEWA", []string{"2024-01-15"}},
		{"dual dates in order", "15/01/2024 17/01/2024 NOON", []string{"15/01/2024", "17/01/2024"}},
		{"no date", "DEWA BILL PAYMENT", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DateTokens(tt.in))
			assert.Equal(t, len(tt.want) > 0, HasDateToken(tt.in))
		})
	}
}
