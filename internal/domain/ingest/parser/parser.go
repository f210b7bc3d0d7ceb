// Package parser turns CSV and Excel statement exports into canonical
// transactions. Exports already carry structured columns, so documents parsed
// here bypass layout detection and row reconstruction entirely.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/fields"
)

// Row is a raw export row. gocsv matches tags against header names
// case-insensitively, so one struct covers the column spellings the supported
// banks use.
type Row struct {
	Date            string `csv:"date"`
	TransactionDate string `csv:"transaction date"`
	PostingDate     string `csv:"posting date"`
	ValueDate       string `csv:"value date"`

	Description string `csv:"description"`
	Narrative   string `csv:"narrative"`
	Details     string `csv:"details"`
	Particulars string `csv:"particulars"`

	Amount  string `csv:"amount"`
	Debit   string `csv:"debit"`
	Credit  string `csv:"credit"`
	Balance string `csv:"balance"`

	Currency string `csv:"currency"`
}

// RowError records a row that could not be parsed. Row failures never abort
// the file.
type RowError struct {
	Row     int
	Column  string
	Message string
	RawData string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// Result is the outcome of parsing one export file.
type Result struct {
	Transactions []*statement.Transaction
	Errors       []RowError
	TotalRows    int
	ParsedRows   int
	SkippedRows  int
}

// Config tunes the parser.
type Config struct {
	Delimiter       rune // 0 = auto via gocsv defaults
	SkipLines       int
	DefaultCurrency string
}

// Parser parses CSV statement exports.
type Parser struct {
	config Config
}

// New creates a parser. An empty DefaultCurrency falls back to AED.
func New(config Config) *Parser {
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "AED"
	}
	return &Parser{config: config}
}

// Parse reads every row from the export, collecting per-row errors.
func (p *Parser) Parse(reader io.Reader) (*Result, error) {
	result := &Result{}

	if p.config.SkipLines > 0 {
		reader = skipLines(reader, p.config.SkipLines)
	}

	r := csv.NewReader(reader)
	if p.config.Delimiter != 0 {
		r.Comma = p.config.Delimiter
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var raw []Row
	if err := gocsv.UnmarshalCSV(r, &raw); err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}

	result.TotalRows = len(raw)
	for i, row := range raw {
		rowNum := i + p.config.SkipLines + 2 // 1-indexed plus header

		tx, rowErr := p.processRow(row, rowNum)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		if tx == nil {
			result.SkippedRows++
			continue
		}
		result.Transactions = append(result.Transactions, tx)
		result.ParsedRows++
	}

	return result, nil
}

func (p *Parser) processRow(row Row, rowNum int) (*statement.Transaction, *RowError) {
	dateStr := coalesce(row.Date, row.TransactionDate, row.ValueDate)
	if dateStr == "" {
		return nil, nil // blank or metadata row
	}

	date, err := fields.ParseDate(dateStr)
	if err != nil {
		return nil, &RowError{Row: rowNum, Column: "date", Message: err.Error(), RawData: dateStr}
	}

	desc := coalesce(row.Description, row.Narrative, row.Details, row.Particulars)
	if desc == "" {
		return nil, &RowError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	amount, currency, rowErr := p.resolveAmount(row, rowNum)
	if rowErr != nil {
		return nil, rowErr
	}
	if amount.IsZero() {
		return nil, &RowError{Row: rowNum, Column: "amount", Message: "zero amount"}
	}

	tx := &statement.Transaction{
		Date:          date,
		Description:   collapseSpaces(desc),
		Amount:        amount,
		Currency:      currency,
		StatementType: statement.TypeUnknown,
		LineStart:     rowNum,
		LineEnd:       rowNum,
	}

	if row.PostingDate != "" {
		if posting, err := fields.ParseDate(row.PostingDate); err == nil {
			tx.PostingDate = &posting
		}
	}
	if row.Balance != "" {
		if bal, _, err := fields.ParseAmount(row.Balance); err == nil {
			tx.Balance = &bal
		}
	}

	return tx, nil
}

// resolveAmount prefers a single signed amount column, falling back to
// debit/credit double entry. Debits are negated, credits kept positive,
// regardless of the sign convention the export uses.
func (p *Parser) resolveAmount(row Row, rowNum int) (decimal.Decimal, string, *RowError) {
	currency := strings.TrimSpace(row.Currency)
	if currency == "" {
		currency = p.config.DefaultCurrency
	}

	if amountStr := strings.TrimSpace(row.Amount); amountStr != "" {
		amount, cur, err := fields.ParseAmount(amountStr)
		if err != nil {
			return decimal.Zero, "", &RowError{Row: rowNum, Column: "amount", Message: err.Error(), RawData: amountStr}
		}
		if cur != "" {
			currency = cur
		}
		return amount, currency, nil
	}

	if debitStr := strings.TrimSpace(row.Debit); debitStr != "" {
		amount, cur, err := fields.ParseAmount(debitStr)
		if err != nil {
			return decimal.Zero, "", &RowError{Row: rowNum, Column: "debit", Message: err.Error(), RawData: debitStr}
		}
		if cur != "" {
			currency = cur
		}
		return amount.Abs().Neg(), currency, nil
	}

	if creditStr := strings.TrimSpace(row.Credit); creditStr != "" {
		amount, cur, err := fields.ParseAmount(creditStr)
		if err != nil {
			return decimal.Zero, "", &RowError{Row: rowNum, Column: "credit", Message: err.Error(), RawData: creditStr}
		}
		if cur != "" {
			currency = cur
		}
		return amount.Abs(), currency, nil
	}

	return decimal.Zero, "", &RowError{Row: rowNum, Column: "amount", Message: "no amount found"}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func skipLines(r io.Reader, n int) io.Reader {
	return &lineSkipper{reader: r, skip: n}
}

type lineSkipper struct {
	reader  io.Reader
	skip    int
	skipped bool
}

func (ls *lineSkipper) Read(p []byte) (int, error) {
	if !ls.skipped {
		buf := make([]byte, 1)
		lines := 0
		for lines < ls.skip {
			n, err := ls.reader.Read(buf)
			if err != nil {
				return 0, err
			}
			if n > 0 && buf[0] == '\n' {
				lines++
			}
		}
		ls.skipped = true
	}
	return ls.reader.Read(p)
}
