// Package statement defines the canonical data model shared by every stage of
// the extraction pipeline: statement layouts, table bounds, reconstructed rows
// and the normalized transaction record downstream consumers receive.
package statement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type identifies the column schema a statement uses.
type Type string

const (
	// TypeTableWithBalance is the classic running-balance table: separate
	// debit/credit columns plus a balance column on every row.
	TypeTableWithBalance Type = "table_with_balance"
	// TypeDualDateSingleAmount carries a transaction date, a posting date and
	// one signed amount column, with no running balance.
	TypeDualDateSingleAmount Type = "dual_date_single_amount"
	// TypeUnknown is a valid outcome, not an error. Detection is total.
	TypeUnknown Type = "unknown"
)

// Kind classifies what a transaction represents once the merchant normalizer
// has seen its description and sign.
type Kind string

const (
	KindSpend         Kind = "spend"
	KindIncome        Kind = "income"
	KindTransfer      Kind = "transfer"
	KindReimbursement Kind = "reimbursement"
	KindUnknown       Kind = "unknown"
)

// TableBounds marks the half-open line range [Start, End) believed to contain
// transaction rows. Everything before Start is preamble (account numbers,
// names, addresses) and is discarded before field parsing.
type TableBounds struct {
	Start int
	End   int
}

// Lines returns the number of lines inside the bounds.
func (b TableBounds) Lines() int {
	return b.End - b.Start
}

// Row is one reconstructed logical transaction row, possibly merged from
// several physical lines. LineStart/LineEnd record the source span for
// debuggability.
type Row struct {
	Text      string
	LineStart int
	LineEnd   int
}

// Transaction is the canonical output unit of the pipeline. It is created by
// the field parser, enriched by the merchant normalizer and never mutated
// after emission.
type Transaction struct {
	Date        time.Time
	PostingDate *time.Time // dual-date layouts only

	Description string
	Merchant    string
	Category    string

	// Amount is signed: negative = outflow, positive = inflow. Never zero for
	// an emitted transaction.
	Amount   decimal.Decimal
	Currency string
	Balance  *decimal.Decimal // running balance when the layout carries one

	Kind Kind

	// Provenance.
	DocumentID    uuid.UUID
	StatementType Type
	LineStart     int
	LineEnd       int
}

// ISODate renders the transaction date in the YYYY-MM-DD form all consumers
// agree on.
func (t *Transaction) ISODate() string {
	return t.Date.Format("2006-01-02")
}

// IsOutflow reports whether money left the account.
func (t *Transaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}
