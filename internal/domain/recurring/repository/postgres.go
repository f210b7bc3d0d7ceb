// Package repository persists detected recurring groups. Detection is a full
// re-scan, so the whole table is rewritten per run: groups are upserted by
// merchant key and groups the scan no longer produces are deleted.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/recurring"
	"github.com/FACorreiaa/statement-pipeline/pkg/money"
)

// DB is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GroupStore reads and writes recurring groups.
type GroupStore struct {
	db       DB
	currency string
}

// NewGroupStore creates a store. currency sets the minor-unit exponent for
// stored averages.
func NewGroupStore(conn DB, currency string) *GroupStore {
	if currency == "" {
		currency = money.AED
	}
	return &GroupStore{db: conn, currency: currency}
}

// ReplaceAll rewrites the table with the latest scan's groups.
func (s *GroupStore) ReplaceAll(ctx context.Context, groups []recurring.Group) error {
	upsert := `
		INSERT INTO recurring_groups (id, merchant_key, merchant_name, category,
			average_amount_minor, currency_code, frequency, confidence, is_active,
			last_occurrence, next_expected, member_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (merchant_key) DO UPDATE SET
			merchant_name = EXCLUDED.merchant_name,
			category = EXCLUDED.category,
			average_amount_minor = EXCLUDED.average_amount_minor,
			frequency = EXCLUDED.frequency,
			confidence = EXCLUDED.confidence,
			is_active = EXCLUDED.is_active,
			last_occurrence = EXCLUDED.last_occurrence,
			next_expected = EXCLUDED.next_expected,
			member_count = EXCLUDED.member_count,
			updated_at = now()`

	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		_, err := s.db.Exec(ctx, upsert,
			uuid.New(), g.MerchantKey, g.MerchantName, g.Category,
			money.NewFromDecimal(g.AverageAmount, s.currency).Amount(), s.currency,
			string(g.Frequency), string(g.Confidence), g.IsActive,
			g.LastOccurrence, g.NextExpected, len(g.MemberIDs),
		)
		if err != nil {
			return fmt.Errorf("upserting group %s: %w", g.MerchantKey, err)
		}
		keys = append(keys, g.MerchantKey)
	}

	if _, err := s.db.Exec(ctx,
		`DELETE FROM recurring_groups WHERE NOT (merchant_key = ANY($1))`, keys,
	); err != nil {
		return fmt.Errorf("pruning stale groups: %w", err)
	}
	return nil
}

// List returns stored groups, active ones first.
func (s *GroupStore) List(ctx context.Context, activeOnly bool) ([]recurring.Group, error) {
	query := `
		SELECT merchant_key, merchant_name, category, average_amount_minor,
			currency_code, frequency, confidence, is_active, last_occurrence, next_expected
		FROM recurring_groups`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY is_active DESC, average_amount_minor DESC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	var groups []recurring.Group
	for rows.Next() {
		var (
			g          recurring.Group
			freq, conf string
			minor      int64
			currency   string
		)
		err := rows.Scan(
			&g.MerchantKey, &g.MerchantName, &g.Category, &minor, &currency,
			&freq, &conf, &g.IsActive, &g.LastOccurrence, &g.NextExpected,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		g.AverageAmount = money.New(minor, currency).ToDecimal()
		g.Frequency = recurring.Frequency(freq)
		g.Confidence = recurring.Confidence(conf)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// TransactionSource reads the detector's snapshot straight from the
// transactions table.
type TransactionSource struct {
	db DB
}

// NewTransactionSource creates a snapshot reader.
func NewTransactionSource(conn DB) *TransactionSource {
	return &TransactionSource{db: conn}
}

// ListSince returns transactions dated on or after the cutoff, oldest first.
func (s *TransactionSource) ListSince(ctx context.Context, since time.Time) ([]recurring.Transaction, error) {
	query := `
		SELECT id, merchant, category, amount_minor, currency_code, txn_date
		FROM transactions
		WHERE txn_date >= $1
		ORDER BY txn_date`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []recurring.Transaction
	for rows.Next() {
		var (
			tx       recurring.Transaction
			minor    int64
			currency string
		)
		if err := rows.Scan(&tx.ID, &tx.Merchant, &tx.Category, &minor, &currency, &tx.Date); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		tx.Amount = money.New(minor, currency).ToDecimal()
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
