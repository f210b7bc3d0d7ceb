// Package repository persists extracted documents and transactions in
// Postgres. Amounts are stored in currency minor units to keep arithmetic
// exact in SQL; the currency's exponent decides the conversion.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	"github.com/FACorreiaa/statement-pipeline/pkg/money"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentRecord captures per-document extraction provenance.
type DocumentRecord struct {
	ID            uuid.UUID
	SourceName    string
	StatementType statement.Type
	PageCount     int
	UsedOCR       bool
	QualityScore  float64
	QualityBand   string
}

// TransactionStore reads and writes transactions.
type TransactionStore struct {
	db DB
}

// NewTransactionStore creates a store over the given connection.
func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// SaveDocument upserts the document row.
func (s *TransactionStore) SaveDocument(ctx context.Context, doc DocumentRecord) error {
	query := `
		INSERT INTO documents (id, source_name, statement_type, page_count, used_ocr, quality_score, quality_band)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			statement_type = EXCLUDED.statement_type,
			page_count = EXCLUDED.page_count,
			used_ocr = EXCLUDED.used_ocr,
			quality_score = EXCLUDED.quality_score,
			quality_band = EXCLUDED.quality_band`

	_, err := s.db.Exec(ctx, query,
		doc.ID, doc.SourceName, string(doc.StatementType),
		doc.PageCount, doc.UsedOCR, doc.QualityScore, doc.QualityBand,
	)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveBatch inserts transactions, skipping rows whose natural key
// (date, merchant, amount) already exists. Returns the number inserted.
func (s *TransactionStore) SaveBatch(ctx context.Context, txs []*statement.Transaction) (int, error) {
	query := `
		INSERT INTO transactions (id, document_id, txn_date, posting_date, description,
			merchant, category, kind, amount_minor, currency_code, balance_minor, line_start, line_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (txn_date, LOWER(merchant), amount_minor) DO NOTHING`

	inserted := 0
	for _, tx := range txs {
		var balanceMinor *int64
		if tx.Balance != nil {
			v := toMinor(*tx.Balance, tx.Currency)
			balanceMinor = &v
		}

		tag, err := s.db.Exec(ctx, query,
			uuid.New(), tx.DocumentID, tx.Date, tx.PostingDate, tx.Description,
			tx.Merchant, tx.Category, string(tx.Kind),
			toMinor(tx.Amount, tx.Currency), tx.Currency, balanceMinor,
			tx.LineStart, tx.LineEnd,
		)
		if err != nil {
			return inserted, fmt.Errorf("inserting transaction at line %d: %w", tx.LineStart, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// ListByDocument returns a document's transactions in statement order.
func (s *TransactionStore) ListByDocument(ctx context.Context, docID uuid.UUID) ([]*statement.Transaction, error) {
	query := listQuery + ` WHERE document_id = $1 ORDER BY line_start`
	return s.list(ctx, query, docID)
}

// StoredTransaction pairs a transaction with its row id, for consumers that
// need to reference individual rows.
type StoredTransaction struct {
	ID uuid.UUID
	Tx statement.Transaction
}

// ListSince returns all transactions dated on or after the cutoff, oldest
// first, with their row ids.
func (s *TransactionStore) ListSince(ctx context.Context, since time.Time) ([]StoredTransaction, error) {
	query := `
		SELECT id, document_id, txn_date, posting_date, description, merchant, category,
			kind, amount_minor, currency_code, balance_minor, line_start, line_end
		FROM transactions
		WHERE txn_date >= $1
		ORDER BY txn_date, line_start`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []StoredTransaction
	for rows.Next() {
		var (
			st           StoredTransaction
			kind         string
			typ          = statement.TypeUnknown
			amountMinor  int64
			balanceMinor *int64
		)
		err := rows.Scan(
			&st.ID, &st.Tx.DocumentID, &st.Tx.Date, &st.Tx.PostingDate, &st.Tx.Description,
			&st.Tx.Merchant, &st.Tx.Category, &kind, &amountMinor, &st.Tx.Currency,
			&balanceMinor, &st.Tx.LineStart, &st.Tx.LineEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		st.Tx.Kind = statement.Kind(kind)
		st.Tx.StatementType = typ
		st.Tx.Amount = fromMinor(amountMinor, st.Tx.Currency)
		if balanceMinor != nil {
			bal := fromMinor(*balanceMinor, st.Tx.Currency)
			st.Tx.Balance = &bal
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and its transactions.
func (s *TransactionStore) DeleteDocument(ctx context.Context, docID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const listQuery = `
	SELECT document_id, txn_date, posting_date, description, merchant, category,
		kind, amount_minor, currency_code, balance_minor, line_start, line_end
	FROM transactions`

func (s *TransactionStore) list(ctx context.Context, query string, args ...any) ([]*statement.Transaction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var out []*statement.Transaction
	for rows.Next() {
		var (
			tx           statement.Transaction
			kind         string
			amountMinor  int64
			balanceMinor *int64
		)
		err := rows.Scan(
			&tx.DocumentID, &tx.Date, &tx.PostingDate, &tx.Description,
			&tx.Merchant, &tx.Category, &kind, &amountMinor, &tx.Currency,
			&balanceMinor, &tx.LineStart, &tx.LineEnd,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		tx.Kind = statement.Kind(kind)
		tx.StatementType = statement.TypeUnknown
		tx.Amount = fromMinor(amountMinor, tx.Currency)
		if balanceMinor != nil {
			bal := fromMinor(*balanceMinor, tx.Currency)
			tx.Balance = &bal
		}
		out = append(out, &tx)
	}
	return out, rows.Err()
}

func toMinor(d decimal.Decimal, currency string) int64 {
	return money.NewFromDecimal(d, currency).Amount()
}

func fromMinor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -int32(money.Fraction(currency)))
}
