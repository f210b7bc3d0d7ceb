// Package money provides currency-safe monetary values using integer minor
// units and ISO-4217 currency codes. Statement amounts move between
// decimal.Decimal at the parsing edge and minor units in storage; this
// package owns both conversions.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes the pipeline commonly sees. KWD, BHD and OMR carry three
// decimal places; conversions must go through the currency's exponent, never
// a hardcoded 100.
const (
	AED = "AED"
	SAR = "SAR"
	QAR = "QAR"
	KWD = "KWD"
	BHD = "BHD"
	OMR = "OMR"
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
)

// Money is a monetary value with currency. It wraps go-money for safe
// arithmetic.
type Money struct {
	m *gomoney.Money
}

// New creates Money from minor units and a currency code.
func New(minor int64, currencyCode string) *Money {
	return &Money{m: gomoney.New(minor, currencyCode)}
}

// NewFromDecimal creates Money from a decimal value, rounding to the
// currency's exponent.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	return New(amount.Shift(int32(Fraction(currencyCode))).Round(0).IntPart(), currencyCode)
}

// Zero returns a zero value in the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Fraction returns the number of decimal places for a currency code,
// defaulting to 2 for unknown codes.
func Fraction(currencyCode string) int {
	if c := gomoney.GetCurrency(currencyCode); c != nil {
		return c.Fraction
	}
	return 2
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

func (m *Money) IsPositive() bool {
	return m != nil && m.m != nil && m.m.IsPositive()
}

func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// Abs returns the absolute value.
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return Zero(AED)
	}
	return &Money{m: m.m.Absolute()}
}

// Negate returns the negated value.
func (m *Money) Negate() *Money {
	if m == nil || m.m == nil {
		return Zero(AED)
	}
	return &Money{m: m.m.Negative()}
}

// Add adds two values. Returns an error on currency mismatch.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Subtract subtracts other from m. Returns an error on currency mismatch.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		if other == nil {
			return Zero(AED), nil
		}
		return other.Negate(), nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Multiply multiplies by an integer factor.
func (m *Money) Multiply(factor int64) *Money {
	if m == nil || m.m == nil {
		return Zero(AED)
	}
	return &Money{m: m.m.Multiply(factor)}
}

// Equals reports value and currency equality. Nil and zero compare equal.
func (m *Money) Equals(other *Money) bool {
	if m == nil || m.m == nil {
		return other == nil || other.m == nil || other.IsZero()
	}
	if other == nil || other.m == nil {
		return m.IsZero()
	}
	eq, _ := m.m.Equals(other.m)
	return eq
}

func (m *Money) LessThan(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	lt, _ := m.m.LessThan(other.m)
	return lt
}

func (m *Money) GreaterThan(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	gt, _ := m.m.GreaterThan(other.m)
	return gt
}

// Compare returns -1, 0 or 1.
func (m *Money) Compare(other *Money) int {
	if m == nil || m.m == nil {
		if other == nil || other.m == nil || other.IsZero() {
			return 0
		}
		if other.IsPositive() {
			return -1
		}
		return 1
	}
	cmp, _ := m.m.Compare(other.m)
	return cmp
}

// SameCurrency reports whether both values share a currency.
func (m *Money) SameCurrency(other *Money) bool {
	if m == nil || m.m == nil || other == nil || other.m == nil {
		return false
	}
	return m.m.SameCurrency(other.m)
}

// Display renders with the currency's symbol and grouping.
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return gomoney.New(0, AED).Display()
	}
	return m.m.Display()
}

// String renders the amount as a plain decimal string.
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(int32(Fraction(m.Currency())))
}

// ToDecimal converts back to a decimal value using the currency's exponent.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// Split divides into n parts, spreading any remainder so no minor unit is
// lost.
func (m *Money) Split(n int) ([]*Money, error) {
	if m == nil || m.m == nil {
		return nil, errors.New("cannot split nil money")
	}
	parts, err := m.m.Split(n)
	if err != nil {
		return nil, err
	}
	result := make([]*Money, len(parts))
	for i, p := range parts {
		result[i] = &Money{m: p}
	}
	return result, nil
}

// Allocate splits by relative weights.
func (m *Money) Allocate(ratios []int) ([]*Money, error) {
	if m == nil || m.m == nil {
		return nil, errors.New("cannot allocate nil money")
	}
	parts, err := m.m.Allocate(ratios...)
	if err != nil {
		return nil, err
	}
	result := make([]*Money, len(parts))
	for i, p := range parts {
		result[i] = &Money{m: p}
	}
	return result, nil
}

func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]any{
		"amount":   m.Amount(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.m = gomoney.New(v.Amount, v.Currency)
	return nil
}

// Scan implements sql.Scanner over a minor-unit integer column.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.m = nil
		return nil
	}
	switch v := value.(type) {
	case int64:
		m.m = gomoney.New(v, AED)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

func (m *Money) Value() (driver.Value, error) {
	if m == nil || m.m == nil {
		return nil, nil
	}
	return m.Amount(), nil
}
