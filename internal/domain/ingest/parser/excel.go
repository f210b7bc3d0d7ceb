package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/ingest/sniffer"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/fields"
)

// ExcelParser parses XLSX statement exports.
type ExcelParser struct {
	config Config
}

// NewExcel creates an Excel parser.
func NewExcel(config Config) *ExcelParser {
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "AED"
	}
	return &ExcelParser{config: config}
}

// Parse reads transactions from an XLSX workbook. The sheet is chosen by
// name, falling back to the first one; columns are matched by header.
func (p *ExcelParser) Parse(reader io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := p.findStatementSheet(f)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}

	result := &Result{}
	start := p.config.SkipLines
	if start >= len(rows) {
		return result, nil
	}

	cols := sniffer.SuggestColumns(rows[start])

	for i := start + 1; i < len(rows); i++ {
		rowNum := i + 1
		result.TotalRows++

		tx, rowErr := p.processRow(rows[i], rowNum, cols)
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

func (p *ExcelParser) findStatementSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, preferred := range []string{"transactions", "statement", "account statement", "sheet1"} {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}
	return sheets[0]
}

func (p *ExcelParser) processRow(cells []string, rowNum int, cols *sniffer.Columns) (*statement.Transaction, *RowError) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[idx])
	}

	dateStr := get(cols.Date)
	if dateStr == "" {
		return nil, nil
	}
	date, err := fields.ParseDate(dateStr)
	if err != nil {
		return nil, &RowError{Row: rowNum, Column: "date", Message: err.Error(), RawData: dateStr}
	}

	desc := get(cols.Description)
	if desc == "" {
		return nil, &RowError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	row := Row{
		Amount:   get(cols.Amount),
		Debit:    get(cols.Debit),
		Credit:   get(cols.Credit),
		Currency: get(cols.Currency),
	}
	csvParser := New(p.config)
	amount, currency, rowErr := csvParser.resolveAmount(row, rowNum)
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

	if postingStr := get(cols.PostingDate); postingStr != "" {
		if posting, err := fields.ParseDate(postingStr); err == nil {
			tx.PostingDate = &posting
		}
	}
	if balStr := get(cols.Balance); balStr != "" {
		if bal, _, err := fields.ParseAmount(balStr); err == nil {
			tx.Balance = &bal
		}
	}

	return tx, nil
}
