// Package dedupe removes logically duplicate transactions. Bank exports and
// multi-pass extraction (OCR path plus raw-text path over the same document)
// commonly yield the same transaction twice; exact-key matching keeps the
// operation O(n) and deterministic. Fuzzy cross-source reconciliation is a
// different problem and lives elsewhere.
package dedupe

import (
	"strings"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
	"github.com/FACorreiaa/statement-pipeline/pkg/money"
)

// Dedupe returns transactions with exact duplicates removed. The key is
// (date, case-folded merchant, amount rounded to the currency's minor unit).
// The first occurrence per key wins and input order is preserved.
func Dedupe(txs []*statement.Transaction) []*statement.Transaction {
	if len(txs) == 0 {
		return txs
	}

	seen := make(map[string]struct{}, len(txs))
	out := make([]*statement.Transaction, 0, len(txs))
	for _, tx := range txs {
		k := key(tx)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, tx)
	}
	return out
}

func key(tx *statement.Transaction) string {
	amount := tx.Amount.Round(int32(money.Fraction(tx.Currency)))

	var b strings.Builder
	b.WriteString(tx.ISODate())
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(tx.Merchant)))
	b.WriteByte('|')
	b.WriteString(amount.String())
	return b.String()
}
