// Package fields extracts date, description, amount and balance from
// reconstructed transaction rows. Parsing is layout-aware: balance-bearing
// tables are scanned from the right, dual-date layouts from the left. Failures
// are per-row and non-fatal; the caller records them and moves on.
package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
)

// Options tunes the parser. The zero value is usable.
type Options struct {
	// DefaultCurrency is assumed when a row carries no currency suffix.
	DefaultCurrency string
	// DualDateDefaultNegative controls the sign of dual-date rows with no
	// credit marker and no refund keyword. Purchases dominate card
	// statements, so the default is negative; it is a policy, not a law.
	DualDateDefaultNegative bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		DefaultCurrency:         "AED",
		DualDateDefaultNegative: true,
	}
}

// FailReason identifies why a row was dropped.
type FailReason string

const (
	FailNoDate        FailReason = "no date token"
	FailNoAmount      FailReason = "no amount token"
	FailZeroAmount    FailReason = "zero amount"
	FailBadDate       FailReason = "unparseable date"
	FailBadAmount     FailReason = "unparseable amount"
	FailTruncatedDesc FailReason = "truncated description"
)

// Failure records a dropped row. It is data, not an error value: row failures
// never abort a batch.
type Failure struct {
	Row    statement.Row
	Reason FailReason
}

func (f Failure) String() string {
	return fmt.Sprintf("line %d-%d: %s", f.Row.LineStart, f.Row.LineEnd, f.Reason)
}

// Parser turns rows into transactions.
type Parser struct {
	opts Options
}

// NewParser creates a parser with the given options.
func NewParser(opts Options) *Parser {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = DefaultOptions().DefaultCurrency
	}
	return &Parser{opts: opts}
}

var (
	creditMarkerRe = regexp.MustCompile(`(?i)^\s*(cr|credit)\b`)
	debitMarkerRe  = regexp.MustCompile(`(?i)^\s*(dr|debit)\b`)
	refundRe       = regexp.MustCompile(`(?i)\b(refund|reversal|reversed|rfnd|chargeback|استرداد)\b`)
)

// ParseRow parses one reconstructed row for the given layout. Exactly one of
// the return values is non-nil.
func (p *Parser) ParseRow(row statement.Row, typ statement.Type) (*statement.Transaction, *Failure) {
	switch typ {
	case statement.TypeDualDateSingleAmount:
		return p.parseDualDate(row)
	case statement.TypeTableWithBalance:
		return p.parseBalanceTable(row)
	default:
		return p.parseGeneric(row)
	}
}

// parseBalanceTable scans amounts right to left: the rightmost amount-shaped
// token is the running balance, the next one is the transaction amount.
func (p *Parser) parseBalanceTable(row statement.Row) (*statement.Transaction, *Failure) {
	text := row.Text

	dateLoc := statement.DateTokenIndex(text)
	if dateLoc == nil {
		return nil, &Failure{Row: row, Reason: FailNoDate}
	}
	date, err := ParseDate(text[dateLoc[0]:dateLoc[1]])
	if err != nil {
		return nil, &Failure{Row: row, Reason: FailBadDate}
	}

	amounts := statement.AmountTokenIndexes(text)
	if len(amounts) == 0 {
		return nil, &Failure{Row: row, Reason: FailNoAmount}
	}

	var (
		amountLoc  []int
		balanceLoc []int
	)
	if len(amounts) >= 2 {
		balanceLoc = amounts[len(amounts)-1]
		amountLoc = amounts[len(amounts)-2]
	} else {
		amountLoc = amounts[0]
	}

	amount, currency, err := ParseAmount(text[amountLoc[0]:amountLoc[1]])
	if err != nil {
		return nil, &Failure{Row: row, Reason: FailBadAmount}
	}
	if amount.IsZero() {
		return nil, &Failure{Row: row, Reason: FailZeroAmount}
	}

	var balance *decimal.Decimal
	if balanceLoc != nil {
		if b, _, berr := ParseAmount(text[balanceLoc[0]:balanceLoc[1]]); berr == nil {
			b = b.Abs()
			balance = &b
		}
	}

	// Sign: explicit marker next to the amount token wins, then a
	// pipe-delimited debit/credit cell pair, then debit by default.
	sign := signFromMarker(text[amountLoc[1]:])
	if sign == 0 {
		sign = signFromCells(text, text[amountLoc[0]:amountLoc[1]])
	}
	if sign == 0 {
		sign = -1
	}
	amount = amount.Abs()
	if sign < 0 {
		amount = amount.Neg()
	}

	desc := text[:amountLoc[0]]
	desc = strings.Replace(desc, text[dateLoc[0]:dateLoc[1]], "", 1)
	desc = cleanDescription(desc)
	if reason := descriptionDefect(desc); reason != "" {
		return nil, &Failure{Row: row, Reason: reason}
	}

	if currency == "" {
		currency = p.opts.DefaultCurrency
	}

	return &statement.Transaction{
		Date:          date,
		Description:   desc,
		Amount:        amount,
		Currency:      currency,
		Balance:       balance,
		Kind:          statement.KindUnknown,
		StatementType: statement.TypeTableWithBalance,
		LineStart:     row.LineStart,
		LineEnd:       row.LineEnd,
	}, nil
}

// parseDualDate handles transaction-date + posting-date layouts with a single
// signed amount column.
func (p *Parser) parseDualDate(row statement.Row) (*statement.Transaction, *Failure) {
	text := row.Text

	dates := statement.DateTokenIndexes(text)
	if len(dates) == 0 {
		return nil, &Failure{Row: row, Reason: FailNoDate}
	}

	txnDate, err := ParseDate(text[dates[0][0]:dates[0][1]])
	if err != nil {
		return nil, &Failure{Row: row, Reason: FailBadDate}
	}
	postingDate := txnDate
	lastDate := dates[0]
	if len(dates) >= 2 {
		lastDate = dates[len(dates)-1]
		if pd, perr := ParseDate(text[lastDate[0]:lastDate[1]]); perr == nil {
			postingDate = pd
		}
	}

	// The amount is the first amount-shaped token after the last date.
	var amountLoc []int
	for _, loc := range statement.AmountTokenIndexes(text) {
		if loc[0] >= lastDate[1] {
			amountLoc = loc
			break
		}
	}
	if amountLoc == nil {
		return nil, &Failure{Row: row, Reason: FailNoAmount}
	}

	amount, currency, err := ParseAmount(text[amountLoc[0]:amountLoc[1]])
	if err != nil {
		return nil, &Failure{Row: row, Reason: FailBadAmount}
	}
	if amount.IsZero() {
		return nil, &Failure{Row: row, Reason: FailZeroAmount}
	}

	desc := text[lastDate[1]:amountLoc[0]]
	if strings.TrimSpace(desc) == "" {
		desc = text[amountLoc[1]:]
	}
	desc = cleanDescription(desc)
	if reason := descriptionDefect(desc); reason != "" {
		return nil, &Failure{Row: row, Reason: reason}
	}

	sign := -1
	if !p.opts.DualDateDefaultNegative {
		sign = 1
	}
	if amount.IsNegative() {
		sign = -1
	}
	if signFromMarker(text[amountLoc[1]:]) > 0 || refundRe.MatchString(desc) {
		sign = 1
	}
	amount = amount.Abs()
	if sign < 0 {
		amount = amount.Neg()
	}

	if currency == "" {
		currency = p.opts.DefaultCurrency
	}

	return &statement.Transaction{
		Date:          txnDate,
		PostingDate:   &postingDate,
		Description:   desc,
		Amount:        amount,
		Currency:      currency,
		Kind:          statement.KindUnknown,
		StatementType: statement.TypeDualDateSingleAmount,
		LineStart:     row.LineStart,
		LineEnd:       row.LineEnd,
	}, nil
}

// parseGeneric is the Unknown-layout fallback: first date, last amount, no
// balance. It keeps extraction total across layouts the detector cannot name.
func (p *Parser) parseGeneric(row statement.Row) (*statement.Transaction, *Failure) {
	text := row.Text

	dateLoc := statement.DateTokenIndex(text)
	if dateLoc == nil {
		return nil, &Failure{Row: row, Reason: FailNoDate}
	}
	date, err := ParseDate(text[dateLoc[0]:dateLoc[1]])
	if err != nil {
		return nil, &Failure{Row: row, Reason: FailBadDate}
	}

	amounts := statement.AmountTokenIndexes(text)
	if len(amounts) == 0 {
		return nil, &Failure{Row: row, Reason: FailNoAmount}
	}
	amountLoc := amounts[len(amounts)-1]

	amount, currency, err := ParseAmount(text[amountLoc[0]:amountLoc[1]])
	if err != nil {
		return nil, &Failure{Row: row, Reason: FailBadAmount}
	}
	if amount.IsZero() {
		return nil, &Failure{Row: row, Reason: FailZeroAmount}
	}

	sign := signFromMarker(text[amountLoc[1]:])
	if sign == 0 && amount.IsNegative() {
		sign = -1
	}
	if sign == 0 {
		sign = -1
	}
	amount = amount.Abs()
	if sign < 0 {
		amount = amount.Neg()
	}

	desc := text[:amountLoc[0]]
	desc = strings.Replace(desc, text[dateLoc[0]:dateLoc[1]], "", 1)
	desc = cleanDescription(desc)
	if reason := descriptionDefect(desc); reason != "" {
		return nil, &Failure{Row: row, Reason: reason}
	}

	if currency == "" {
		currency = p.opts.DefaultCurrency
	}

	return &statement.Transaction{
		Date:          date,
		Description:   desc,
		Amount:        amount,
		Currency:      currency,
		Kind:          statement.KindUnknown,
		StatementType: statement.TypeUnknown,
		LineStart:     row.LineStart,
		LineEnd:       row.LineEnd,
	}, nil
}

// ParseDate parses the supported date shapes into a calendar date.
// Two-digit years pivot at 50: above it 1900s, otherwise 2000s.
func ParseDate(tok string) (time.Time, error) {
	tok = strings.TrimSpace(tok)

	for _, f := range []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006"} {
		if t, err := time.Parse(f, tok); err == nil {
			return t, nil
		}
	}

	// DD/MM/YY with pivot year.
	parts := strings.FieldsFunc(tok, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) == 3 && len(parts[2]) == 2 {
		day, derr := strconv.Atoi(parts[0])
		month, merr := strconv.Atoi(parts[1])
		yy, yerr := strconv.Atoi(parts[2])
		if derr == nil && merr == nil && yerr == nil {
			year := 2000 + yy
			if yy > 50 {
				year = 1900 + yy
			}
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			if t.Day() == day && int(t.Month()) == month {
				return t, nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", tok)
}

// ParseAmount parses one amount-shaped token into a decimal value plus an
// optional currency code carried as a comma-delimited suffix ("108.35,AED").
// Continental decimal commas ("302,00") are accepted; thousands separators are
// stripped before parsing.
func ParseAmount(tok string) (decimal.Decimal, string, error) {
	tok = strings.TrimSpace(tok)
	currency := ""

	// Currency suffix: amount immediately followed by ",XXX".
	if i := strings.LastIndex(tok, ","); i >= 0 && i == len(tok)-4 {
		suffix := tok[i+1:]
		if isAlpha(suffix) {
			currency = strings.ToUpper(suffix)
			tok = tok[:i]
		}
	}

	// Continental decimal comma: single comma with exactly two trailing
	// digits and no dot.
	if !strings.Contains(tok, ".") {
		if i := strings.LastIndex(tok, ","); i >= 0 && len(tok)-i-1 == 2 {
			tok = tok[:i] + "." + tok[i+1:]
		}
	}

	tok = strings.ReplaceAll(tok, ",", "")
	d, err := decimal.NewFromString(tok)
	if err != nil {
		return decimal.Zero, currency, fmt.Errorf("invalid amount %q: %w", tok, err)
	}
	return d, currency, nil
}

// signFromMarker inspects the text immediately following an amount token for
// an explicit CR/DR marker. Returns +1, -1 or 0 when absent.
func signFromMarker(after string) int {
	if creditMarkerRe.MatchString(after) {
		return 1
	}
	if debitMarkerRe.MatchString(after) {
		return -1
	}
	return 0
}

// signFromCells resolves sign from a pipe-delimited debit/credit cell pair.
// Cell order is assumed date|description|debit|credit|balance.
func signFromCells(text, amountTok string) int {
	if !strings.Contains(text, "|") {
		return 0
	}
	cells := strings.Split(text, "|")
	if len(cells) < 4 {
		return 0
	}
	debit := strings.TrimSpace(cells[len(cells)-3])
	credit := strings.TrimSpace(cells[len(cells)-2])
	switch {
	case strings.Contains(debit, amountTok):
		return -1
	case strings.Contains(credit, amountTok):
		return 1
	}
	return 0
}

// cleanDescription strips residual amount tokens, markers and separator noise
// from a description fragment.
func cleanDescription(s string) string {
	s = strings.ReplaceAll(s, "|", " ")
	s = creditMarkerRe.ReplaceAllString(s, "")
	s = debitMarkerRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -:,")
}

// descriptionDefect reports whether a cleaned description is unusable: too
// short, or a lone 1-2 letter token. Such rows are truncated beyond repair
// and are dropped, not flagged.
func descriptionDefect(desc string) FailReason {
	if len(desc) < 3 {
		return FailTruncatedDesc
	}
	toks := strings.Fields(desc)
	if len(toks) == 1 && len(toks[0]) <= 2 {
		return FailTruncatedDesc
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}
