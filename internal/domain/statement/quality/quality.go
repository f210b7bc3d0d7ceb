// Package quality scores how trustworthy an extraction batch is. The score is
// a structural heuristic, not a semantic one: it looks at row counts, amount
// plausibility and description health, and reports ordered human-readable
// reasons so a caller (or a human) can decide to trust, re-OCR or discard.
package quality

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement"
)

// Band buckets the score.
type Band string

const (
	BandHigh   Band = "high"   // score >= 0.7
	BandMedium Band = "medium" // 0.4 <= score < 0.7
	BandLow    Band = "low"    // score < 0.4
)

// Report is the result of assessing a batch. It is recomputed on demand and
// has no persisted identity.
type Report struct {
	Score        float64
	Reasons      []string
	Band         Band
	IsAcceptable bool
}

// Tunable limits. Values mirror what worked on real statements.
const (
	minBatchSize         = 10
	rowShortfallFraction = 0.3
	minPlausibleAmount   = 0.01
	maxPlausibleAmount   = 1_000_000.0
	largeAmountThreshold = 100_000.0
)

// Assessor scores batches. MinAcceptableBand is the caller's policy; the
// default accepts Medium and above.
type Assessor struct {
	MinAcceptableBand Band
}

// NewAssessor returns an assessor with the default acceptability policy.
func NewAssessor() *Assessor {
	return &Assessor{MinAcceptableBand: BandMedium}
}

// Assess scores a batch. It never fails: an empty batch scores 0 with reason
// "no transactions extracted".
func (a *Assessor) Assess(txs []*statement.Transaction, extractedRowCount, expectedRowsPerPage, pageCount int) Report {
	if len(txs) == 0 {
		return a.finish(0, []string{"no transactions extracted"})
	}
	if len(txs) < minBatchSize {
		return a.finish(0, []string{"Too few transactions"})
	}

	score := 1.0
	var reasons []string

	expected := float64(expectedRowsPerPage * pageCount)
	if expected > 0 && float64(extractedRowCount) < rowShortfallFraction*expected {
		score -= 0.3
		reasons = append(reasons, fmt.Sprintf("extracted %d rows, expected around %.0f", extractedRowCount, expected))
	}

	n := float64(len(txs))
	truncated := 0
	invalidAmount := 0
	large := 0
	incomplete := 0
	for _, tx := range txs {
		if isTruncatedDescription(tx.Description) {
			truncated++
		}
		abs, _ := tx.Amount.Abs().Float64()
		if abs < minPlausibleAmount || abs > maxPlausibleAmount {
			invalidAmount++
		}
		if abs > largeAmountThreshold {
			large++
		}
		if !hasCompleteDescription(tx.Description) {
			incomplete++
		}
	}

	if float64(truncated)/n > 0.20 {
		score -= 0.2
		reasons = append(reasons, fmt.Sprintf("%d of %d descriptions look truncated", truncated, len(txs)))
	}
	if invalidAmount > 0 {
		score -= 0.2
		reasons = append(reasons, fmt.Sprintf("%d amounts outside the plausible range", invalidAmount))
	}
	if float64(large)/n > 0.10 {
		score -= 0.15
		reasons = append(reasons, "many implausibly large amounts, rows may have merged")
	}
	if float64(incomplete)/n > 0.30 {
		score -= 0.15
		reasons = append(reasons, fmt.Sprintf("%d of %d descriptions are incomplete", incomplete, len(txs)))
	}

	if score < 0 {
		score = 0
	}
	return a.finish(score, reasons)
}

func (a *Assessor) finish(score float64, reasons []string) Report {
	band := bandFor(score)
	return Report{
		Score:        score,
		Reasons:      reasons,
		Band:         band,
		IsAcceptable: bandAtLeast(band, a.minBand()),
	}
}

func (a *Assessor) minBand() Band {
	if a.MinAcceptableBand == "" {
		return BandMedium
	}
	return a.MinAcceptableBand
}

// IsGoodEnoughToSkipOCR is the strict binary escalation gate: it answers
// whether the raw-text parse is trustworthy enough that the OCR (or assisted)
// path can be skipped entirely. It is deliberately harsher than the score.
func (a *Assessor) IsGoodEnoughToSkipOCR(txs []*statement.Transaction) (bool, []string) {
	var reasons []string

	if len(txs) < minBatchSize {
		reasons = append(reasons, "Too few transactions")
		return false, reasons
	}

	// A single amount repeating across a large share of the batch signals
	// stuck-value parsing (the same token matched on every row).
	counts := make(map[string]int, len(txs))
	for _, tx := range txs {
		counts[tx.Amount.Abs().String()]++
	}
	for amount, c := range counts {
		if float64(c)/float64(len(txs)) > 0.30 {
			reasons = append(reasons, fmt.Sprintf("amount %s repeats in %d of %d transactions", amount, c, len(txs)))
			return false, reasons
		}
	}

	trivial := 0
	for _, tx := range txs {
		if isTrivialDescription(tx.Description) {
			trivial++
		}
	}
	if float64(trivial)/float64(len(txs)) >= 0.20 {
		reasons = append(reasons, fmt.Sprintf("%d of %d descriptions are trivial fragments", trivial, len(txs)))
		return false, reasons
	}

	return true, nil
}

// isTruncatedDescription mirrors the field parser's truncation signature, for
// batches that reached the assessor through other ingestion paths.
func isTruncatedDescription(desc string) bool {
	desc = strings.TrimSpace(desc)
	if len(desc) < 3 {
		return true
	}
	toks := strings.Fields(desc)
	return len(toks) == 1 && len(toks[0]) <= 2
}

// hasCompleteDescription requires at least two words of three or more
// characters.
func hasCompleteDescription(desc string) bool {
	words := 0
	for _, tok := range strings.Fields(desc) {
		if len(tok) >= 3 {
			words++
		}
	}
	return words >= 2
}

// isTrivialDescription reports whether a description is composed mostly of
// 1-2 letter tokens (isolated country/currency-code fragments).
func isTrivialDescription(desc string) bool {
	toks := strings.Fields(desc)
	if len(toks) == 0 {
		return true
	}
	short := 0
	for _, tok := range toks {
		if len(tok) <= 2 {
			short++
		}
	}
	return float64(short)/float64(len(toks)) > 0.5
}

func bandFor(score float64) Band {
	switch {
	case score >= 0.7:
		return BandHigh
	case score >= 0.4:
		return BandMedium
	default:
		return BandLow
	}
}

func bandAtLeast(b, min Band) bool {
	rank := map[Band]int{BandLow: 0, BandMedium: 1, BandHigh: 2}
	return rank[b] >= rank[min]
}
