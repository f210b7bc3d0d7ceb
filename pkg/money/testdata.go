package money

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator produces realistic statement-shaped test data.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a fixed seed so tests are
// reproducible.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

var uaeMerchants = []string{
	"CAREEM QUIK", "NOON MINUTES", "TALABAT", "LULU HYPERMARKET",
	"CARREFOUR", "SPINNEYS", "DEWA", "ETISALAT", "DU TELECOM",
	"NETFLIX.COM", "SPOTIFY AB", "AMAZON.AE", "EMIRATES NBD ATM",
	"ADNOC DISTRIBUTION", "ENOC", "RTA DUBAI", "SALIK TOPUP",
}

var uaeCities = []string{"Dubai", "Abu Dhabi", "Sharjah", "Ajman", "Al Ain"}

// Amount returns a random spend amount as a decimal within the given range.
func (g *TestDataGenerator) Amount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(g.faker.Float64Range(min, max)).Round(2)
}

// Merchant returns a raw merchant descriptor the way card processors print
// them, trailing city and country suffix included.
func (g *TestDataGenerator) Merchant() string {
	name := uaeMerchants[g.faker.Number(0, len(uaeMerchants)-1)]
	city := uaeCities[g.faker.Number(0, len(uaeCities)-1)]
	return fmt.Sprintf("%s %s:AE", name, city)
}

// Date returns a random date within the past year.
func (g *TestDataGenerator) Date() time.Time {
	now := time.Now()
	return g.faker.DateRange(now.AddDate(-1, 0, 0), now)
}

// BalanceTableLine renders one running-balance statement row as OCR would
// see it.
func (g *TestDataGenerator) BalanceTableLine(balance decimal.Decimal) (string, decimal.Decimal) {
	amount := g.Amount(5, 900)
	newBalance := balance.Sub(amount)
	line := fmt.Sprintf("%s  %s  %s  %s",
		g.Date().Format("02/01/2006"),
		g.Merchant(),
		amount.StringFixed(2),
		newBalance.Abs().StringFixed(2),
	)
	return line, newBalance
}

// BalanceTableLines renders a header row plus n transaction rows.
func (g *TestDataGenerator) BalanceTableLines(n int, openingBalance decimal.Decimal) []string {
	lines := make([]string, 0, n+1)
	lines = append(lines, "Date  Description  Debit  Credit  Balance")
	balance := openingBalance
	for i := 0; i < n; i++ {
		var line string
		line, balance = g.BalanceTableLine(balance)
		lines = append(lines, line)
	}
	return lines
}
