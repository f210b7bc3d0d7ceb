package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFraction(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{AED, 2},
		{SAR, 2},
		{USD, 2},
		{KWD, 3},
		{BHD, 3},
		{OMR, 3},
		{"ZZZ", 2},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, Fraction(tt.code))
		})
	}
}

func TestNewFromDecimal(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		currency  string
		wantMinor int64
	}{
		{"two decimal places", "32.50", AED, 3250},
		{"rounds half away from zero", "12.345", AED, 1235},
		{"negative outflow", "-55.99", AED, -5599},
		{"three decimal currency", "5.999", KWD, 5999},
		{"three decimals not lost", "1.234", BHD, 1234},
		{"whole amount", "12500", AED, 1250000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFromDecimal(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.wantMinor, m.Amount())
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestToDecimal_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		minor    int64
		currency string
		want     string
	}{
		{"dirhams", -3250, AED, "-32.5"},
		{"kuwaiti dinar uses exponent three", 5999, KWD, "5.999"},
		{"zero", 0, AED, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.minor, tt.currency).ToDecimal()
			assert.Equal(t, tt.want, got.String())
		})
	}

	t.Run("nil is zero", func(t *testing.T) {
		var m *Money
		assert.True(t, m.ToDecimal().IsZero())
	})
}

func TestString(t *testing.T) {
	assert.Equal(t, "-55.99", New(-5599, AED).String())
	assert.Equal(t, "5.999", New(5999, KWD).String())

	var m *Money
	assert.Equal(t, "0.00", m.String())
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "$1,500.50", New(150050, USD).Display())
}

func TestArithmetic(t *testing.T) {
	t.Run("add same currency", func(t *testing.T) {
		sum, err := New(3250, AED).Add(New(1050, AED))
		require.NoError(t, err)
		assert.Equal(t, int64(4300), sum.Amount())
	})

	t.Run("add currency mismatch", func(t *testing.T) {
		_, err := New(100, AED).Add(New(100, USD))
		require.Error(t, err)
	})

	t.Run("add nil operand", func(t *testing.T) {
		sum, err := (*Money)(nil).Add(New(100, AED))
		require.NoError(t, err)
		assert.Equal(t, int64(100), sum.Amount())
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := New(3250, AED).Subtract(New(1050, AED))
		require.NoError(t, err)
		assert.Equal(t, int64(2200), diff.Amount())
	})

	t.Run("subtract from nil negates", func(t *testing.T) {
		diff, err := (*Money)(nil).Subtract(New(100, AED))
		require.NoError(t, err)
		assert.Equal(t, int64(-100), diff.Amount())
	})

	t.Run("multiply", func(t *testing.T) {
		assert.Equal(t, int64(-16770), New(-5590, AED).Multiply(3).Amount())
	})

	t.Run("abs and negate", func(t *testing.T) {
		assert.Equal(t, int64(3250), New(-3250, AED).Abs().Amount())
		assert.Equal(t, int64(-3250), New(3250, AED).Negate().Amount())
	})
}

func TestComparisons(t *testing.T) {
	small := New(100, AED)
	large := New(200, AED)

	assert.True(t, small.LessThan(large))
	assert.True(t, large.GreaterThan(small))
	assert.Equal(t, -1, small.Compare(large))
	assert.Equal(t, 1, large.Compare(small))
	assert.Equal(t, 0, small.Compare(New(100, AED)))

	assert.True(t, small.Equals(New(100, AED)))
	assert.False(t, small.Equals(large))
	assert.True(t, Zero(AED).Equals(nil))
	assert.True(t, (*Money)(nil).Equals(Zero(AED)))

	assert.True(t, small.SameCurrency(large))
	assert.False(t, small.SameCurrency(New(100, USD)))
	assert.False(t, small.SameCurrency(nil))
}

func TestSplit(t *testing.T) {
	parts, err := New(100, AED).Split(3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	// The remainder lands on the leading parts so the sum stays exact.
	assert.Equal(t, int64(34), parts[0].Amount())
	assert.Equal(t, int64(33), parts[1].Amount())
	assert.Equal(t, int64(33), parts[2].Amount())

	_, err = New(100, AED).Split(0)
	require.Error(t, err)

	var m *Money
	_, err = m.Split(2)
	require.Error(t, err)
}

func TestAllocate(t *testing.T) {
	parts, err := New(1000, AED).Allocate([]int{1, 1, 2})
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, int64(250), parts[0].Amount())
	assert.Equal(t, int64(250), parts[1].Amount())
	assert.Equal(t, int64(500), parts[2].Amount())

	var m *Money
	_, err = m.Allocate([]int{1})
	require.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(New(-5599, AED))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount":-5599`)
	assert.Contains(t, string(data), `"currency":"AED"`)

	var m Money
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, int64(-5599), m.Amount())
	assert.Equal(t, AED, m.Currency())
}

func TestScanValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan(int64(2500)))
	assert.Equal(t, int64(2500), m.Amount())
	assert.Equal(t, AED, m.Currency())

	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(2500), v)

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	v, err = m.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.Error(t, m.Scan("25.00"))
}
